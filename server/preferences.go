package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

// preferenceCategory validates the {type} path element
func preferenceCategory(r *http.Request) (domain.Category, error) {
	category := domain.Category(strings.ToLower(r.PathValue("type")))
	for _, known := range domain.Categories {
		if category == known {
			return category, nil
		}
	}
	return "", fmt.Errorf("unknown preference type %q", r.PathValue("type"))
}

// savePreferenceHandler stores a single preference for the user
func (s *Server) savePreferenceHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		renderError(w, r, fmt.Errorf("key is required"), http.StatusBadRequest)
		return
	}

	if err := s.Preferences.Save(r.Context(), user, req.Key, req.Value); err != nil {
		lgr.Printf("[ERROR] save preference for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]string{"status": "success", "message": "preference saved"})
}

// savePreferenceListHandler stores a batch of values under one category,
// one upsert per item with key <type>_<item lower-cased>
func (s *Server) savePreferenceListHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	category, err := preferenceCategory(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	var req struct {
		Items []string `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}

	saved := 0
	for _, item := range req.Items {
		value := strings.ToLower(strings.TrimSpace(item))
		if value == "" {
			continue
		}
		if err := s.Preferences.Save(r.Context(), user, category.Key(value), value); err != nil {
			lgr.Printf("[ERROR] save %s preference for %s: %v", category, user, err)
			renderError(w, r, err, http.StatusInternalServerError)
			return
		}
		saved++
	}

	renderJSON(w, r, http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("%d %s preferences saved", saved, category),
	})
}

// getPreferencesHandler returns all stored preferences for the user as a
// key-indexed mapping
func (s *Server) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	prefs, err := s.Preferences.GetAll(r.Context(), user)
	if err != nil {
		lgr.Printf("[ERROR] get preferences for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	type entry struct {
		Value     string `json:"value"`
		Frequency int    `json:"frequency"`
		Timestamp string `json:"timestamp"`
	}
	mapping := make(map[string]entry, len(prefs))
	for _, p := range prefs {
		mapping[p.Key] = entry{Value: p.Value, Frequency: p.Frequency, Timestamp: p.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z")}
	}

	renderJSON(w, r, http.StatusOK, map[string]interface{}{"status": "success", "preferences": mapping})
}

// getPreferenceListHandler returns the values stored under one category
func (s *Server) getPreferenceListHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	category, err := preferenceCategory(r)
	if err != nil {
		renderError(w, r, err, http.StatusBadRequest)
		return
	}

	values, err := s.Preferences.GetByCategory(r.Context(), user, category)
	if err != nil {
		lgr.Printf("[ERROR] get %s preferences for %s: %v", category, user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if values == nil {
		values = []string{}
	}

	renderJSON(w, r, http.StatusOK, values)
}

// extractHandler runs preference extraction over free text and reports
// what was newly learned
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		renderError(w, r, fmt.Errorf("text is required"), http.StatusBadRequest)
		return
	}

	result, err := s.Extractor.Extract(r.Context(), user, req.Text)
	if err != nil {
		// findings stored before the failure stay in place
		lgr.Printf("[ERROR] extract preferences for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, result)
}

// profileHandler returns the user's assembled preference profile
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	profile, err := s.Profiler.Profile(r.Context(), user)
	if err != nil {
		lgr.Printf("[ERROR] assemble profile for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, profile)
}

// substitutionsHandler answers ?ingredient=milk&tags=vegan,dairy-free
func (s *Server) substitutionsHandler(w http.ResponseWriter, r *http.Request) {
	ingredient := r.URL.Query().Get("ingredient")
	if ingredient == "" {
		renderError(w, r, fmt.Errorf("ingredient is required"), http.StatusBadRequest)
		return
	}

	var tags []string
	for _, tag := range strings.Split(r.URL.Query().Get("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	subs := s.Resolver.Resolve(tags, ingredient)
	if subs == nil {
		subs = []string{}
	}
	renderJSON(w, r, http.StatusOK, subs)
}

// chatHandler is the conversational glue: it learns preferences from the
// message, then answers with the updated profile and substitutions for
// any restricted ingredients the message mentions
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		renderError(w, r, fmt.Errorf("message is required"), http.StatusBadRequest)
		return
	}

	learned, err := s.Extractor.Extract(r.Context(), user, req.Message)
	if err != nil {
		lgr.Printf("[ERROR] chat extraction for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	profile, err := s.Profiler.Profile(r.Context(), user)
	if err != nil {
		lgr.Printf("[ERROR] chat profile for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	substitutions := s.Resolver.Mentioned(profile.Dietary, req.Message)

	renderJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":        "success",
		"reply":         chatReply(learned, substitutions),
		"learned":       learned,
		"profile":       profile,
		"substitutions": substitutions,
	})
}

// chatReply builds a short human-readable answer for the chat envelope
func chatReply(learned *domain.ExtractionResult, substitutions map[string][]string) string {
	var parts []string
	if !learned.Empty() {
		total := len(learned.NewDislikes) + len(learned.NewLikes) + len(learned.NewCuisines) + len(learned.NewDietary)
		parts = append(parts, fmt.Sprintf("Noted %d new preference(s).", total))
	}
	for ingredient, subs := range substitutions {
		parts = append(parts, fmt.Sprintf("For %s try: %s.", ingredient, strings.Join(subs, ", ")))
	}
	if len(parts) == 0 {
		return "Got it. Anything else about your tastes or pantry?"
	}
	return strings.Join(parts, " ")
}

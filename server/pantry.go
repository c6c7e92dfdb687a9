package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

// pantryItemRequest is the request body for add and update operations
type pantryItemRequest struct {
	Name      string     `json:"name"`
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit"`
	Category  string     `json:"category"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// pantryItemID parses the {id} path element
func pantryItemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid item ID")
	}
	return id, nil
}

// userPantryItem loads an item and checks it belongs to the path user
func (s *Server) userPantryItem(r *http.Request) (*domain.PantryItem, error) {
	id, err := pantryItemID(r)
	if err != nil {
		return nil, err
	}
	item, err := s.Pantry.GetItem(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if item.UserID != r.PathValue("user") {
		return nil, fmt.Errorf("pantry item %d not found", id)
	}
	return item, nil
}

// listPantryHandler returns the user's inventory, soonest expiry first
func (s *Server) listPantryHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	items, err := s.Pantry.GetItems(r.Context(), user)
	if err != nil {
		lgr.Printf("[ERROR] list pantry for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []domain.PantryItem{}
	}
	renderJSON(w, r, http.StatusOK, items)
}

// addPantryHandler creates an inventory item
func (s *Server) addPantryHandler(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	var req pantryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		renderError(w, r, fmt.Errorf("name is required"), http.StatusBadRequest)
		return
	}

	item := &domain.PantryItem{
		UserID:    user,
		Name:      req.Name,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Category:  req.Category,
		ExpiresAt: req.ExpiresAt,
	}
	if err := s.Pantry.CreateItem(r.Context(), item); err != nil {
		lgr.Printf("[ERROR] add pantry item for %s: %v", user, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "pantry item added",
		"id":      item.ID,
	})
}

// getPantryHandler returns a single inventory item
func (s *Server) getPantryHandler(w http.ResponseWriter, r *http.Request) {
	item, err := s.userPantryItem(r)
	if err != nil {
		renderError(w, r, err, http.StatusNotFound)
		return
	}
	renderJSON(w, r, http.StatusOK, item)
}

// updatePantryHandler replaces the mutable fields of an item
func (s *Server) updatePantryHandler(w http.ResponseWriter, r *http.Request) {
	item, err := s.userPantryItem(r)
	if err != nil {
		renderError(w, r, err, http.StatusNotFound)
		return
	}

	var req pantryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		item.Name = req.Name
	}
	item.Quantity = req.Quantity
	item.Unit = req.Unit
	item.Category = req.Category
	item.ExpiresAt = req.ExpiresAt

	if err := s.Pantry.UpdateItem(r.Context(), item); err != nil {
		lgr.Printf("[ERROR] update pantry item %d: %v", item.ID, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]string{"status": "success", "message": "pantry item updated"})
}

// deletePantryHandler removes an item from the inventory
func (s *Server) deletePantryHandler(w http.ResponseWriter, r *http.Request) {
	item, err := s.userPantryItem(r)
	if err != nil {
		renderError(w, r, err, http.StatusNotFound)
		return
	}

	if err := s.Pantry.DeleteItem(r.Context(), item.ID); err != nil {
		lgr.Printf("[ERROR] delete pantry item %d: %v", item.ID, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	renderJSON(w, r, http.StatusOK, map[string]string{"status": "success", "message": "pantry item deleted"})
}

package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-roleplay-desk/catalog"
	"github.com/jrsteele09/go-roleplay-desk/identity"
	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/session"
)

// maxUploadBytes bounds an item form including its image.
const maxUploadBytes = 10 << 20

type ItemsPageData struct {
	pageData
	Items []catalog.Item
}

// ItemsPageHandler lists the catalog (GET /items).
func (s *Server) ItemsPageHandler() session.HandlerFunc {
	tmpl := mustParse(ParseTemplate("items.html", "fragment_item.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		data := ItemsPageData{pageData: s.page(user)}
		items, err := s.catalog.List(r.Context())
		if err != nil {
			log.Err(err).Msg("Failed to list items")
			data.Error = "Items could not be loaded"
		}
		data.Items = items
		render(w, tmpl, http.StatusOK, data)
	}
}

// HTMXAddItemHandler adds an item and returns its list entry.
func (s *Server) HTMXAddItemHandler() session.HandlerFunc {
	itemTmpl := mustParse(ParseFragment("fragment_item.html"))
	messageTmpl := mustParse(ParseFragment("fragment_message.html"))

	return func(w http.ResponseWriter, r *http.Request, user *identity.User) {
		in, err := newItemFromRequest(w, r)
		if err == nil {
			var item *catalog.Item
			if item, err = s.catalog.Add(r.Context(), in); err == nil {
				render(w, itemTmpl, http.StatusOK, item)
				return
			}
		}
		text := "The item could not be added"
		if apperrors.Is(err, apperrors.ErrInvalidRequest) {
			text = invalidRequestText(err)
		} else {
			log.Err(err).Str("user", user.ID).Msg("Failed to add item")
		}
		// htmx only swaps 2xx responses by default
		render(w, messageTmpl, http.StatusOK, messageData{Kind: "error", Text: text})
	}
}

// newItemFromRequest reads the item form: name, quantity and an optional image file.
func newItemFromRequest(w http.ResponseWriter, r *http.Request) (catalog.NewItem, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return catalog.NewItem{}, apperrors.Wrapf(apperrors.ErrInvalidRequest, "invalid item form: %v", err)
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(r.FormValue("quantity")))
	if err != nil {
		return catalog.NewItem{}, apperrors.Wrapf(apperrors.ErrInvalidRequest, "quantity must be a whole number")
	}
	in := catalog.NewItem{Name: r.FormValue("name"), Quantity: quantity}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return catalog.NewItem{}, apperrors.Wrapf(apperrors.ErrInvalidRequest, "invalid image: %v", err)
	}
	defer file.Close()

	if in.Image, err = io.ReadAll(file); err != nil {
		return catalog.NewItem{}, fmt.Errorf("read image: %w", err)
	}
	in.ContentType = header.Header.Get("Content-Type")
	if in.ContentType == "" || in.ContentType == "application/octet-stream" {
		in.ContentType = http.DetectContentType(in.Image)
	}
	return in, nil
}

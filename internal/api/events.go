package api

import (
	"net/http"

	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/service"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	items, err := h.events.ListEvents(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	var e model.Event
	if err := in.Apply(&e); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.events.CreateEvent(r.Context(), &e); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in service.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	e, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := in.Apply(e); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.events.UpdateEvent(r.Context(), e); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportAttendees accepts a multipart upload in the "file" field.
func (h *Handler) ImportAttendees(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "please select a file to upload")
		return
	}
	defer file.Close()

	res, err := h.imports.ImportFile(r.Context(), id, hdr.Filename, hdr.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"added":   res.Added,
		"errors":  res.Errors,
		"message": res.Summary(),
	})
}

func (h *Handler) RemoveAllAttendees(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.events.GetEvent(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.attendees.DeleteEventAttendees(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": n})
}

// SendInvitations runs one bulk WhatsApp batch for the event.
func (h *Handler) SendInvitations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.invitations.SendEvent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         res.Success(),
		"eligible":        res.Eligible,
		"attempted":       res.Attempted,
		"sent":            res.Sent,
		"failed":          res.Failed,
		"errors":          res.Errors,
		"skipped":         res.Skipped,
		"skipped_message": res.SkippedMessage(),
	})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/service"
)

func (h *Handler) ListEventAttendees(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.events.GetEvent(r.Context(), eventID); err != nil {
		h.writeError(w, r, err)
		return
	}
	items, err := h.attendees.ListAttendees(r.Context(), eventID, r.URL.Query().Get("search"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) CreateAttendee(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in service.AttendeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if _, err := h.events.GetEvent(r.Context(), eventID); err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := in.NewAttendee(eventID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.attendees.CreateAttendee(r.Context(), a); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) GetEventAttendee(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadEventAttendee(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) UpdateAttendee(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadEventAttendee(w, r)
	if !ok {
		return
	}
	var in service.AttendeeInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if err := in.ApplyTo(a); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.attendees.UpdateAttendee(r.Context(), a); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAttendee(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attendeeID, err := pathID(r, "attendeeID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.attendees.DeleteAttendee(r.Context(), eventID, attendeeID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListAllAttendees(w http.ResponseWriter, r *http.Request) {
	items, err := h.attendees.ListAllAttendees(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetAttendee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "attendeeID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.attendees.GetAttendee(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.invitations.Receipt(r.Context(), id)
	if err != nil {
		h.log.Warn().Err(err).Int64("attendee_id", id).Msg("reading invitation receipt failed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendee": a, "last_invitation": receipt})
}

func (h *Handler) SendInvitation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "attendeeID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	remoteID, err := h.invitations.SendOne(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": true, "remote_message_id": remoteID})
}

func (h *Handler) AttendeeQR(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "attendeeID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	png, err := h.invitations.QRCode(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Content-Disposition", "inline; filename=qr_"+strconv.FormatInt(id, 10)+".png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// MarkAttendance is the target of the check-in QR code.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attendeeID, err := pathID(r, "attendeeID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	a, err := h.attendance.MarkAttended(r.Context(), eventID, attendeeID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attendee": a,
		"message":  a.Name + " marked as attended!",
	})
}

func (h *Handler) loadEventAttendee(w http.ResponseWriter, r *http.Request) (*model.Attendee, bool) {
	eventID, err := pathID(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	attendeeID, err := pathID(r, "attendeeID")
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	a, err := h.attendees.GetEventAttendee(r.Context(), eventID, attendeeID)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return a, true
}

// v1
// internal/httpapi/notifications.go
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (a *api) listNotifications(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	if _, err := a.zoneCrop(zone); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, map[string]any{
		"notifications": a.Notifications.List(zone),
		"unread":        a.Notifications.Unread(zone),
	})
}

func (a *api) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	n, err := a.Notifications.MarkRead(vars["zone"], vars["id"])
	if err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, n)
}

func (a *api) clearNotifications(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	if _, err := a.zoneCrop(zone); err != nil {
		writeError(a.Logger, w, err)
		return
	}
	writeJSON(a.Logger, w, http.StatusOK, map[string]int{"cleared": a.Notifications.Clear(zone)})
}

package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers are cross-origin; access control is out of scope here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := a.hub.Register(conn, rate.Limit(a.config.ChatRateRPS), a.config.ChatRateBurst)
	go client.Run()
}

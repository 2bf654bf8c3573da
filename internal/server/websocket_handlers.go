package server

import (
	"medfeed/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler returns a websocket handler that registers connections with the Hub.
// Authentication is handled by route middleware and userID is read from connection locals.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || s.hub == nil {
			if cerr := conn.Close(); cerr != nil {
				middleware.Logger.Warn("websocket close error", "error", cerr)
			}
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed", "doctor_id", uid, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}

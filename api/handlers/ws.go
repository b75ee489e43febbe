package handlers

import (
	"net/http"

	"mindcare/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSConnect - подключение клиента для push-доставки событий чата.
// Сервер в это соединение только пишет; чтение нужно, чтобы заметить
// разрыв.
func WSConnect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to upgrade connection"})
		return
	}

	services.GlobalWSConnManager.Add(userID, conn)

	go func() {
		defer func() {
			services.GlobalWSConnManager.Remove(userID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

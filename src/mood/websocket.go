package mood

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// handleWebSocket 每条二进制消息是一帧图片，文本消息可以是data URI；
// 同一连接上的帧按顺序逐个处理
func (s *DefaultMoodService) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("WebSocket升级失败: %v", err))
		return
	}
	defer conn.Close()

	// base64会让数据膨胀约4/3
	conn.SetReadLimit(s.maxFileSize*4/3 + 1024)
	s.logger.Info(fmt.Sprintf("Mood WebSocket连接建立: %s", c.Request.RemoteAddr))

	ctx := c.Request.Context()
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn(fmt.Sprintf("WebSocket读取失败: %v", err))
			}
			return
		}

		var data []byte
		switch messageType {
		case websocket.BinaryMessage:
			data = payload
		case websocket.TextMessage:
			data, err = decodeDataURI(string(payload))
			if err != nil {
				if werr := s.writeJSON(conn, MoodResponse{Kind: KindNoCapture, Message: err.Error()}); werr != nil {
					return
				}
				continue
			}
		default:
			continue
		}

		_, response := s.analyze(ctx, data)
		if err := s.writeJSON(conn, response); err != nil {
			s.logger.Warn(fmt.Sprintf("WebSocket写入失败: %v", err))
			return
		}
	}
}

func (s *DefaultMoodService) writeJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

// decodeDataURI 解析 data:image/...;base64,... 或纯base64文本
func decodeDataURI(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if strings.HasPrefix(text, "data:") {
		comma := strings.Index(text, ",")
		if comma < 0 || !strings.Contains(text[:comma], ";base64") {
			return nil, fmt.Errorf("unsupported data URI")
		}
		text = text[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %v", err)
	}
	return data, nil
}

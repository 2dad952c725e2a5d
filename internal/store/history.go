package store

import (
	"github.com/tmc/langchaingo/llms"
)

// Message roles as persisted. Tool rows carry the call id and tool name so
// placeholder resolution keeps working across turns.
const (
	roleHuman  = "human"
	roleAI     = "ai"
	roleSystem = "system"
	roleTool   = "tool"
)

func (s *Store) AddMessage(chatID, role, content string) error {
	_, err := s.DB.Exec(
		`INSERT INTO messages (chat_id, role, content) VALUES (?, ?, ?)`,
		chatID, role, content,
	)
	return err
}

func (s *Store) AddToolResult(chatID, callID, toolName, content string) error {
	_, err := s.DB.Exec(
		`INSERT INTO messages (chat_id, role, content, tool_call_id, tool_name) VALUES (?, ?, ?, ?, ?)`,
		chatID, roleTool, content, callID, toolName,
	)
	return err
}

// GetHistory loads the most recent messages in chronological order, shaped
// for the model.
func (s *Store) GetHistory(chatID string, limit int) ([]llms.MessageContent, error) {
	rows, err := s.DB.Query(
		`SELECT role, COALESCE(content, ''), COALESCE(tool_call_id, ''), COALESCE(tool_name, '')
		 FROM messages WHERE chat_id = ? ORDER BY id DESC LIMIT ?`,
		chatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []llms.MessageContent
	for rows.Next() {
		var role, content, callID, toolName string
		if err := rows.Scan(&role, &content, &callID, &toolName); err != nil {
			return nil, err
		}
		if content == "" {
			continue
		}

		switch role {
		case roleTool:
			history = append(history, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: callID,
						Name:       toolName,
						Content:    content,
					},
				},
			})
		case roleAI:
			history = append(history, llms.TextParts(llms.ChatMessageTypeAI, content))
		case roleSystem:
			history = append(history, llms.TextParts(llms.ChatMessageTypeSystem, content))
		default:
			history = append(history, llms.TextParts(llms.ChatMessageTypeHuman, content))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

package gateway

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/priya/vachan/internal/agent"
)

type DiscordGateway struct {
	Session *discordgo.Session
	Brain   agent.Brain
}

func NewDiscordGateway(token string, brain agent.Brain) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages

	gw := &DiscordGateway{Session: session, Brain: brain}
	session.AddHandler(gw.onMessage)
	return gw, nil
}

func (dg *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.Content == "" {
		return
	}

	response, err := dg.Brain.Think(context.Background(), m.ChannelID, m.Content)
	if err != nil {
		log.Printf("Error thinking: %v", err)
		response = "I'm having trouble thinking right now..."
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, response); err != nil {
		log.Printf("Error sending discord message: %v", err)
	}
}

func (dg *DiscordGateway) Start() error {
	return dg.Session.Open()
}

func (dg *DiscordGateway) Send(chatID string, text string) error {
	_, err := dg.Session.ChannelMessageSend(chatID, text)
	return err
}

func (dg *DiscordGateway) Stop() error {
	return dg.Session.Close()
}

// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library. It bridges
// Discord's Opus-based voice transport with soundcheck's PCM capture and
// playback model.
//
// The platform requires an active *discordgo.Session (owned by the bot
// layer). It keeps one [Connection] per guild; connecting again to the same
// channel reuses the existing connection, connecting to a different channel
// replaces it.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/soundcheck/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// Platform implements [audio.Platform] using discordgo voice connections.
//
// Platform is safe for concurrent use.
type Platform struct {
	session *discordgo.Session

	mu    sync.Mutex
	conns map[string]*Connection // guild ID -> active connection
}

// New creates a Platform for the given session.
func New(session *discordgo.Session) *Platform {
	return &Platform{
		session: session,
		conns:   make(map[string]*Connection),
	}
}

// Connect joins the voice channel identified by channelID in the given guild.
// An existing alive connection to the same channel is reused; a connection to
// a different channel in the guild is torn down first.
func (p *Platform) Connect(ctx context.Context, guildID, channelID string) (audio.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.conns[guildID]; ok {
		if existing.Alive() && existing.ChannelID() == channelID {
			return existing, nil
		}
		if err := existing.Disconnect(); err != nil {
			slog.Warn("discord: disconnect stale voice connection", "guild_id", guildID, "err", err)
		}
		delete(p.conns, guildID)
	}

	// mute=false (we send audio), deaf=false (we receive audio).
	vc, err := p.session.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, err)
	}

	conn := newConnection(vc, guildID, channelID)
	p.conns[guildID] = conn
	return conn, nil
}

// Get returns the active connection for a guild, if any.
func (p *Platform) Get(guildID string) (audio.Connection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn, ok := p.conns[guildID]
	if !ok || !conn.Alive() {
		return nil, false
	}
	return conn, true
}

// Disconnect tears down the guild's connection, if any.
func (p *Platform) Disconnect(guildID string) error {
	p.mu.Lock()
	conn, ok := p.conns[guildID]
	delete(p.conns, guildID)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	return conn.Disconnect()
}

// Sweep disconnects every guild's voice connection. Each guild is handled
// independently; one guild's failure never blocks cleanup of the others.
// Used during process shutdown.
func (p *Platform) Sweep() error {
	p.mu.Lock()
	conns := make(map[string]*Connection, len(p.conns))
	for guildID, conn := range p.conns {
		conns[guildID] = conn
	}
	p.conns = make(map[string]*Connection)
	p.mu.Unlock()

	var g errgroup.Group
	for guildID, conn := range conns {
		g.Go(func() error {
			if err := conn.Disconnect(); err != nil {
				slog.Warn("discord: sweep disconnect failed", "guild_id", guildID, "err", err)
				return fmt.Errorf("discord: sweep guild %s: %w", guildID, err)
			}
			slog.Debug("discord: sweep disconnected", "guild_id", guildID)
			return nil
		})
	}
	return g.Wait()
}

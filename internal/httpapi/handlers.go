package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/skirmish-lobby/internal/hub"
	"github.com/DoyleJ11/skirmish-lobby/internal/lobby"
	"github.com/DoyleJ11/skirmish-lobby/internal/maps"
	"github.com/DoyleJ11/skirmish-lobby/internal/session"
	"github.com/DoyleJ11/skirmish-lobby/internal/store"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateLobbyRequest is the optional body of POST /lobbies.
type CreateLobbyRequest struct {
	ServerName string `json:"server_name"`
	Map        string `json:"map"`
	Spectators *int   `json:"spectators"`
}

type CreateLobbyResponse struct {
	Code       string `json:"code"`
	Map        string `json:"map"`
	ServerName string `json:"server_name"`
}

// Defaults fill in whatever a create request leaves out.
type Defaults struct {
	ServerName string
	Map        string
	Spectators int
}

// LobbyStore records created lobbies. A duplicate code makes the handler
// pick another one.
type LobbyStore interface {
	CreateLobby(ctx context.Context, code, serverName, mapUID string) error
}

const maxCodeAttempts = 16

func CreateLobby(d Deps) http.HandlerFunc {
	h, catalog, def, log := d.Hub, d.Maps, d.Defaults, d.Logger
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateLobbyRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}
		if req.ServerName == "" {
			req.ServerName = def.ServerName
		}
		if req.Map == "" {
			req.Map = def.Map
		}
		spectators := def.Spectators
		if req.Spectators != nil && *req.Spectators >= 0 {
			spectators = *req.Spectators
		}

		m, err := catalog.Initial(req.Map)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, maps.ErrNoSelectableMap) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}

		var code string
		for attempt := 0; code == "" && attempt < maxCodeAttempts; attempt++ {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *lobby.Lobby, 1)
			h.Inbox() <- hub.GetLobby{Code: c, Reply: reply}
			if <-reply != nil {
				log.Debug("collision on code, regenerating", zap.String("code", c))
				continue
			}
			if d.Store != nil {
				err := d.Store.CreateLobby(r.Context(), c, req.ServerName, m.Uid)
				if errors.Is(err, store.ErrDuplicateCode) {
					log.Debug("code used by an earlier lobby, regenerating", zap.String("code", c))
					continue
				}
				if err != nil {
					log.Error("record lobby", zap.String("code", c), zap.Error(err))
					http.Error(w, "failed to create lobby", http.StatusInternalServerError)
					return
				}
			}
			code = c
		}
		if code == "" {
			http.Error(w, "no free lobby code", http.StatusServiceUnavailable)
			return
		}

		state := session.New(req.ServerName, m.Uid, maps.Slots(m, spectators))
		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.EnsureLobby{Code: code, State: state, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create lobby", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(CreateLobbyResponse{Code: code, Map: m.Uid, ServerName: req.ServerName})
	}
}

// ListMaps serves the map chooser entries.
func ListMaps(catalog *maps.Catalog) http.HandlerFunc {
	type entry struct {
		Uid         string `json:"uid"`
		Title       string `json:"title"`
		Author      string `json:"author"`
		PlayerCount int    `json:"player_count"`
		Size        string `json:"size"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		choices := catalog.Choices()
		out := make([]entry, 0, len(choices))
		for _, m := range choices {
			out = append(out, entry{Uid: m.Uid, Title: m.Title, Author: m.Author, PlayerCount: m.PlayerCount, Size: m.Size()})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

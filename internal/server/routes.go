package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"

	"github.com/flagforge/arena/internal/game"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, admin AdminStore,
	limiter RateLimiter, hasher game.Hasher, db *sql.DB, rdb *redis.Client) {

	broker := NewBroker()
	audit := NewAuditor(store, logger)

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("FlagForge Arena API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	r.Route("/api", func(r chi.Router) {
		// Player routes, authenticated with Bearer session tokens.
		r.Post("/teams", handleCreateTeam(store, audit))
		r.Post("/teams/join", handleJoinTeam(store, broker))
		r.Get("/team", handleTeamState(store))

		r.Get("/rooms", handleListRooms(store))
		r.Post("/rooms/{roomID}/unlock", handleUnlockRoom(store, audit))
		r.Get("/rooms/{roomID}/puzzles", handleRoomPuzzles(store))

		r.Post("/flags", handleSubmitFlag(logger, store, limiter, hasher, audit, broker))
		r.Post("/challenges/{puzzleID}/start", handleStartChallenge(store, audit))
		r.Post("/actions", handleAction(store, audit, broker))

		r.Get("/perks", handleListPerks(store))
		r.Post("/clues/{clueID}/buy", handleBuyClue(store, audit))
		r.Post("/perks/{perkID}/buy", handleBuyPerk(store, audit))

		r.Get("/leaderboard", handleLeaderboard(store))
		r.Get("/events", handleEvents(store, broker))

		// Admin auth uses cookie sessions.
		r.Post("/admin/login", handleAdminLogin(admin, audit))
		r.Post("/admin/logout", handleAdminLogout(admin))
		r.Get("/admin/me", handleAdminMe(admin))

		r.Route("/admin/rooms", func(r chi.Router) {
			r.Use(adminAuthMiddleware(admin))
			r.Get("/", handleAdminListRooms(admin))
			r.Post("/", handleAdminCreateRoom(admin, audit))
			r.Put("/{roomID}", handleAdminUpdateRoom(admin, audit))
			r.Delete("/{roomID}", handleAdminDeleteRoom(admin, audit))
			r.Post("/{roomID}/puzzles", handleAdminCreatePuzzle(admin, hasher, audit))
		})

		r.Route("/admin/puzzles", func(r chi.Router) {
			r.Use(adminAuthMiddleware(admin))
			r.Put("/{puzzleID}", handleAdminUpdatePuzzle(admin, hasher, audit))
			r.Delete("/{puzzleID}", handleAdminDeletePuzzle(admin, audit))
			r.Post("/{puzzleID}/clues", handleAdminCreateClue(admin, audit))
		})

		r.Route("/admin/clues", func(r chi.Router) {
			r.Use(adminAuthMiddleware(admin))
			r.Delete("/{clueID}", handleAdminDeleteClue(admin, audit))
		})

		r.Route("/admin/perks", func(r chi.Router) {
			r.Use(adminAuthMiddleware(admin))
			r.Post("/", handleAdminCreatePerk(admin, audit))
		})

		r.Route("/admin/teams", func(r chi.Router) {
			r.Use(adminAuthMiddleware(admin))
			r.Get("/", handleAdminListTeams(admin))
			r.Put("/{teamID}/disabled", handleAdminSetTeamDisabled(admin, audit))
			r.Post("/{teamID}/points", handleAdminAdjustPoints(admin, audit))
			r.Put("/{teamID}/room", handleAdminOverrideRoom(admin, audit))
		})
	})
}

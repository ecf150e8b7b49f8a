package server

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/flagforge/arena/internal/game"
)

// SeedDemo creates a bootstrap admin and a small demo competition if the
// database is empty. Idempotent: does nothing once rooms exist.
func SeedDemo(ctx context.Context, logger *slog.Logger, admin AdminStore, hasher game.Hasher, adminEmail, adminPassword string) error {
	if adminEmail != "" && adminPassword != "" {
		count, err := admin.CountAdmins(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if err := admin.CreateAdmin(ctx, adminEmail, string(hash)); err != nil {
				return err
			}
			logger.Info("bootstrap admin created", "email", adminEmail)
		}
	}

	existing, err := admin.ListAllRooms(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	lobby, err := admin.CreateRoom(ctx, AdminRoomRequest{
		Name: "The Lobby", OrderIndex: 1,
		Brief:      "Read the rules, grab the welcome flag, and get your team moving.",
		UnlockCost: 0, Active: true,
	})
	if err != nil {
		return err
	}
	vault, err := admin.CreateRoom(ctx, AdminRoomRequest{
		Name: "The Vault", OrderIndex: 2,
		Brief:      "Crypto and forensics. The clock starts when you open the safe.",
		UnlockCost: 150, Active: true,
	})
	if err != nil {
		return err
	}

	rules, err := admin.CreatePuzzle(ctx, lobby.ID, AdminPuzzleRequest{
		Title: "House Rules", Type: "rules",
		Description: "The flag is hidden in the competition rules page.",
		Flag:        "flag{read_the_rules}", Points: 50, Active: true,
	}, hasher.Hash("flag{read_the_rules}"))
	if err != nil {
		return err
	}
	if _, err := admin.CreateClue(ctx, rules.ID, AdminClueRequest{
		Text: "Scroll all the way down.", Cost: 10, OrderIndex: 1,
	}); err != nil {
		return err
	}

	warmup, err := admin.CreatePuzzle(ctx, lobby.ID, AdminPuzzleRequest{
		Title: "Warmup Cipher", Type: "standard",
		Description: "A classic rotation hides the flag.",
		Flag:        "flag{caesar_salad}", Points: 100, Active: true,
	}, hasher.Hash("flag{caesar_salad}"))
	if err != nil {
		return err
	}
	if _, err := admin.CreateClue(ctx, warmup.ID, AdminClueRequest{
		Text: "Thirteen is a lucky number.", Cost: 25, OrderIndex: 1,
	}); err != nil {
		return err
	}

	_, err = admin.CreatePuzzle(ctx, vault.ID, AdminPuzzleRequest{
		Title: "Crack the Safe", Type: "standard",
		Description: "A timed challenge. Half the reward is escrowed up front.",
		Flag:        "flag{tumblers_click}", Points: 400, Active: true,
		IsChallenge: true, TimerMinutes: 30, Multiplier: 2.0,
	}, hasher.Hash("flag{tumblers_click}"))
	if err != nil {
		return err
	}

	if _, err := admin.CreatePerk(ctx, AdminPerkRequest{
		Name:        "Sticker Pack",
		Description: "A set of event stickers, redeemable at the front desk.",
		Cost:        75, OneTime: true,
	}); err != nil {
		return err
	}

	logger.Info("demo competition seeded", "rooms", 2)
	return nil
}

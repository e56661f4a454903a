package main

import (
	"context"
	"log"
)

// Bootstrap rehydrates cached credentials at process start: every persisted
// entry is re-validated against the platform, and the configured bot user is
// reattached to chat. A failing entry is logged and skipped; it never stops
// the scan.
type Bootstrap struct {
	Store   TokenStore
	Users   UserResolver
	BotUser string
	Attach  AttachFunc
}

func (b *Bootstrap) LoadAll(ctx context.Context) error {
	entries, err := b.Store.List()
	if err != nil {
		return err
	}

	for _, e := range entries {
		identity, err := b.Users.ResolveUser(ctx, e.Credential.AccessToken)
		if err != nil {
			log.Printf("bootstrap: lookup for cached user %s failed, skipping: %v", e.UserID, err)
			continue
		}
		log.Printf("bootstrap: restored credential for %s", identity.Login)

		if b.Attach != nil && b.BotUser != "" && identity.Login == b.BotUser {
			if err := b.Attach(identity, e.Credential); err != nil {
				log.Printf("bootstrap: bot attach for %s failed: %v", identity.Login, err)
			}
		}
	}
	return nil
}

package jobs

import (
	"context"
	"log"
	"time"

	"beanstalker/services"
)

// StartTransferExpirySweeper periodically flips past-expiry pending
// credit transfers to expired. Redemption also checks expiry on access,
// so this only exists to keep the table tidy and the status honest.
func StartTransferExpirySweeper(ctx context.Context, transfers *services.TransferService) {
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := transfers.ExpireStale(ctx)
				if err != nil {
					log.Printf("❌ expire transfers sweep failed: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("expired %d stale credit transfers", n)
				}
			}
		}
	}()
}

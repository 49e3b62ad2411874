package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/logger"
)

const (
	slotKey       = "stress-cart"
	totalRequests = 200
	distinctItems = 20
)

func main() {
	ctx := context.Background()

	log, err := logger.New(logger.Options{Service: "stress_test", Level: "info", Development: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect redis", zap.String("addr", redisAddr), zap.Error(err))
	}
	defer rdb.Close()

	slot := storage.NewRedisAdapter(rdb)
	if err := slot.Delete(ctx, slotKey); err != nil {
		log.Fatal("failed to reset slot", zap.Error(err))
	}

	cart := service.NewCartStore(slot, slotKey, log)
	cart.Initialize(ctx)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			id := int64(n%distinctItems + 1)
			err := cart.AddEntry(ctx, domain.CartEntry{
				ID:    id,
				Title: fmt.Sprintf("Item %d", id),
				Price: float64(id) * 1.5,
				Image: fmt.Sprintf("https://fakestoreapi.com/img/%d.jpg", id),
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
				log.Warn("add failed", zap.Int64("id", id), zap.Error(err))
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Cart Entries:     %d\n", cart.Len())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if int(success) == cart.Len() && fail == 0 {
		fmt.Printf("PASS: all %d adds kept\n", success)
	} else {
		fmt.Printf("FAIL: %d adds succeeded but cart holds %d entries\n", success, cart.Len())
	}

	raw, err := slot.Get(ctx, slotKey)
	if err != nil {
		fmt.Printf("FAIL: read slot: %v\n", err)
		return
	}
	var stored []domain.CartEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		fmt.Printf("FAIL: slot is not a cart: %v\n", err)
		return
	}

	if cmp.Equal(stored, cart.Entries()) {
		fmt.Println("PASS: slot matches memory")
	} else {
		fmt.Printf("FAIL: slot holds %d entries, memory %d\n", len(stored), cart.Len())
	}

	reloaded := service.NewCartStore(slot, slotKey, log)
	reloaded.Initialize(ctx)
	if reloaded.Len() == cart.Len() {
		fmt.Println("PASS: reload sees every entry")
	} else {
		fmt.Printf("FAIL: reload sees %d entries, expected %d\n", reloaded.Len(), cart.Len())
	}

	slot.Delete(ctx, slotKey)
}

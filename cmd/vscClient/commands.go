package main

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/vsc-eco/vsc-client-go/pkg/codec"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func didCommand(c *cli.Context) error {
	keyDID, err := loadDID(c)
	if err != nil {
		return err
	}
	fmt.Println(keyDID.ID())
	return nil
}

func addressCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	account, err := loadEvmAccount(c.Context, c, l)
	if err != nil {
		return err
	}
	fmt.Printf("address: %s\n", account.Address().Hex())
	fmt.Printf("did:     %s\n", did.PkhDID(did.EvmChainId, account.Address()))
	return nil
}

func nonceCommand(c *cli.Context) error {
	vsc, _, err := newLoggedInClient(c.Context, c)
	if err != nil {
		return err
	}
	defer func() { _ = vsc.Close() }()

	nonce, err := vsc.GetNonce(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %w", err)
	}
	fmt.Printf("%s: %d\n", vsc.Session().Identity(), nonce)
	return nil
}

func broadcastCommand(c *cli.Context) error {
	payload, err := value.FromJSON([]byte(c.String("payload")))
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	vsc, _, err := newLoggedInClient(c.Context, c)
	if err != nil {
		return err
	}
	defer func() { _ = vsc.Close() }()

	intent := types.NewCallContractIntent(c.String("contract-id"), c.String("action"), payload)
	res, err := vsc.Broadcast(c.Context, intent)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Submitted transaction: %s\n", res.Id)
	return nil
}

func benchCommand(c *cli.Context) error {
	count := c.Int("count")
	concurrency := c.Int("concurrency")
	if count <= 0 || concurrency <= 0 {
		return fmt.Errorf("count and concurrency must be positive")
	}

	vsc, l, err := newLoggedInClient(c.Context, c)
	if err != nil {
		return err
	}
	defer func() { _ = vsc.Close() }()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps := c.Float64("rps"); rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	var succeeded, failed atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(concurrency)
	for i := 0; i < count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		g.Go(func() error {
			intent := types.NewCallContractIntent(c.String("contract-id"), c.String("action"), value.Object{
				{Key: "seq", Value: value.Int(i)},
			})
			if _, err := vsc.Broadcast(ctx, intent); err != nil {
				failed.Add(1)
				l.Sugar().Warnw("Bench broadcast failed", "seq", i, "error", err)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Printf("sent %d transactions in %s (%d ok, %d failed, %.2f tx/s)\n",
		count, elapsed.Round(time.Millisecond), succeeded.Load(), failed.Load(),
		float64(succeeded.Load())/elapsed.Seconds())
	return nil
}

func decodeCommand(c *cli.Context) error {
	block, err := codec.TextToBytes(c.String("tx"))
	if err != nil {
		return err
	}
	tx, err := codec.Decode(block)
	if err != nil {
		return err
	}
	link, err := codec.ContentIDFromBytes(block)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("cid: %s\n%s\n", link, out)

	sigText := c.String("sig")
	if sigText == "" {
		return nil
	}
	sigBlock, err := codec.TextToBytes(sigText)
	if err != nil {
		return err
	}
	sig, err := codec.Decode(sigBlock)
	if err != nil {
		return err
	}
	out, err = json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("signatures:\n%s\n", out)

	jwsList, err := did.ReassembleJWS(c.String("tx"), sigText)
	if err != nil {
		return err
	}
	for _, d := range jwsList {
		compact, err := d.Compact(0)
		if err != nil {
			return err
		}
		fmt.Printf("jws: %s\n", compact)
	}
	return nil
}

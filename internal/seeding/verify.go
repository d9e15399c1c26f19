package seeding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/arryn/arryn/internal/domain/model"
	"github.com/arryn/arryn/pkg/logger"
)

// ErrOrdering is returned when a ranked view is not in descending order or
// exceeds the requested limit.
var ErrOrdering = errors.New("ranking ordering violated")

// verify fetches the ranked and trending views and checks their ordering.
func verify(ctx context.Context, c *client, cfg *Config, stats *Stats) error {
	log := logger.Named("seeding")
	q := url.Values{}
	q.Set("limit", strconv.Itoa(cfg.Limit))

	var ranked []model.ScoredOffer
	if err := c.getJSON(ctx, "/api/ranked-offers?"+q.Encode(), &ranked); err != nil {
		return err
	}
	scores := make([]float64, len(ranked))
	for i, o := range ranked {
		scores[i] = o.ScoreTotal
	}
	if err := checkDescending("ranked-offers", scores, cfg.Limit); err != nil {
		return err
	}
	stats.Ranked = len(ranked)

	q.Set("days", strconv.Itoa(cfg.Days))
	var trending []model.TrendGroup
	if err := c.getJSON(ctx, "/api/trending-offers?"+q.Encode(), &trending); err != nil {
		return err
	}
	scores = make([]float64, len(trending))
	for i, g := range trending {
		scores[i] = g.TrendingScore
	}
	if err := checkDescending("trending-offers", scores, cfg.Limit); err != nil {
		return err
	}
	stats.Trending = len(trending)

	if len(ranked) > 0 {
		top := ranked[0]
		log.Info(ctx, "best ranked offer",
			logger.String("title", top.Title),
			logger.String("source", top.Source),
			logger.Float64("price", top.Price),
			logger.Float64("score", top.ScoreTotal))
	}
	if len(trending) > 0 {
		top := trending[0]
		log.Info(ctx, "top trending product",
			logger.String("title", top.Title),
			logger.Int("apparitions", top.Apparitions),
			logger.Int("stores", top.DistinctSourceCount),
			logger.Float64("score", top.TrendingScore))
	}
	return nil
}

func checkDescending(view string, scores []float64, limit int) error {
	if len(scores) > limit {
		return fmt.Errorf("%w: %s returned %d entries for limit %d", ErrOrdering, view, len(scores), limit)
	}
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[i-1] {
			return fmt.Errorf("%w: %s entry %d scores %.3f above entry %d (%.3f)",
				ErrOrdering, view, i, scores[i], i-1, scores[i-1])
		}
	}
	return nil
}

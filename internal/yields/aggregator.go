package yields

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// JLPCompoundPeriods compounds the JLP fee APR daily for JLP_APY.
const JLPCompoundPeriods = 365

type Config struct {
	SanctumURL  string
	ExponentURL string
	JLPAccount  string

	// Strict turns every provider failure, including a missing JLP account,
	// into an error. Otherwise failures log and report zero.
	Strict bool
}

type Aggregator struct {
	cfg    Config
	http   *http.Client
	rpc    AccountReader
	logger *logrus.Logger
}

func NewAggregator(cfg Config, rpc AccountReader, timeout time.Duration, logger *logrus.Logger) *Aggregator {
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		rpc:    rpc,
		logger: logger,
	}
}

// Fetch queries the three providers concurrently and merges them.
func (a *Aggregator) Fetch(ctx context.Context) (Snapshot, error) {
	var (
		sanctum  map[string]float64
		exponent ExponentRates
		jlp      decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := FetchSanctum(gctx, a.http, a.cfg.SanctumURL)
		if err != nil {
			return a.soft("sanctum", err)
		}
		sanctum = v
		return nil
	})
	g.Go(func() error {
		v, err := FetchExponent(gctx, a.http, a.cfg.ExponentURL)
		if err != nil {
			return a.soft("exponent", err)
		}
		exponent = v
		return nil
	})
	g.Go(func() error {
		v, err := FetchJLP(gctx, a.rpc, a.cfg.JLPAccount)
		if err != nil {
			return a.soft("jlp", err)
		}
		jlp = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	var s Snapshot
	for _, lst := range SanctumLSTs {
		s.add(lst, decimal.NewFromFloat(sanctum[lst]).Mul(hundred))
	}
	s.add("kySOL", exponent.KySOL)
	s.add("fragSOL", exponent.FragSOL)
	s.add("JLP", jlp)
	s.add("JLP_APY", CompoundToAPY(jlp, JLPCompoundPeriods))
	return s, nil
}

func (a *Aggregator) soft(provider string, err error) error {
	if a.cfg.Strict {
		return err
	}
	entry := a.logger.WithField("provider", provider)
	if errors.Is(err, ErrAccountNotFound) {
		entry.Warn("account not found, reporting 0")
		return nil
	}
	entry.WithError(err).Warn("provider failed, reporting 0")
	return nil
}

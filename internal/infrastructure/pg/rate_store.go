package pg

import (
	"context"
	"errors"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"
	"fx-margin-guard/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	_ application.RateStore = (*RateStore)(nil)
	_ application.Expirer   = (*RateStore)(nil)
)

type RateStore struct{ db *DB }

func NewRateStore(db *DB) *RateStore { return &RateStore{db: db} }

const insertRate = `
        INSERT INTO rates(currency_pair, ts_ms, rate, source, record_type, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (currency_pair, ts_ms) DO NOTHING`

func (s *RateStore) Append(ctx context.Context, rec domain.RateRecord) error {
	inserted, err := s.insert(ctx, rec)
	if err != nil {
		return err
	}
	if !inserted {
		return domain.ErrConflict
	}
	return nil
}

// PutDailyReferenceIfAbsent serializes writers on the derived key with a
// transaction-scoped advisory lock, so concurrent first writes of a day
// collapse to one row.
func (s *RateStore) PutDailyReferenceIfAbsent(ctx context.Context, rec domain.RateRecord) (bool, error) {
	write := func(ctx context.Context) (bool, error) {
		c := s.db.conn(ctx)
		if _, err := c.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rec.CurrencyPair); err != nil {
			return false, err
		}
		var exists bool
		if err := c.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rates WHERE currency_pair=$1)`, rec.CurrencyPair).Scan(&exists); err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
		return s.insert(ctx, rec)
	}
	if txFromCtx(ctx) != nil {
		return write(ctx)
	}
	var written bool
	uow := &UnitOfWork{Pool: s.db.Pool}
	err := uow.Do(ctx, func(ctx context.Context) error {
		var err error
		written, err = write(ctx)
		return err
	})
	return written, err
}

func (s *RateStore) insert(ctx context.Context, rec domain.RateRecord) (bool, error) {
	log := logx.L().With(
		zap.String("repo", "rates"),
		zap.String("currency_pair", rec.CurrencyPair),
		zap.Int64("ts_ms", domain.ToMillis(rec.Timestamp)),
	)
	tag, err := s.db.conn(ctx).Exec(ctx, insertRate,
		rec.CurrencyPair, domain.ToMillis(rec.Timestamp), rec.Rate, rec.Source, rec.Type, rec.ExpiresAt)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return false, err
	}
	log.Debug("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return tag.RowsAffected() == 1, nil
}

const selectRate = `SELECT currency_pair, ts_ms, rate, source, record_type, expires_at FROM rates`

func (s *RateStore) Latest(ctx context.Context, pair domain.Pair) (domain.RateRecord, error) {
	return s.one(ctx, selectRate+` WHERE currency_pair=$1 ORDER BY ts_ms DESC LIMIT 1`, string(pair))
}

func (s *RateStore) AtOrBefore(ctx context.Context, pair domain.Pair, at time.Time) (domain.RateRecord, error) {
	return s.one(ctx, selectRate+` WHERE currency_pair=$1 AND ts_ms <= $2 ORDER BY ts_ms DESC LIMIT 1`,
		string(pair), domain.ToMillis(at))
}

func (s *RateStore) ByDerivedKey(ctx context.Context, key string) (domain.RateRecord, error) {
	return s.one(ctx, selectRate+` WHERE currency_pair=$1 ORDER BY ts_ms ASC LIMIT 1`, key)
}

func (s *RateStore) one(ctx context.Context, q string, args ...any) (domain.RateRecord, error) {
	var (
		out  domain.RateRecord
		tsMs int64
	)
	err := s.db.conn(ctx).QueryRow(ctx, q, args...).
		Scan(&out.CurrencyPair, &tsMs, &out.Rate, &out.Source, &out.Type, &out.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RateRecord{}, domain.ErrNotFound
	}
	if err != nil {
		logx.L().Error("sql.query_failed", zap.String("repo", "rates"), zap.Error(err))
		return domain.RateRecord{}, err
	}
	out.Timestamp = domain.FromMillis(tsMs)
	out.ExpiresAt = out.ExpiresAt.UTC()
	return out, nil
}

func (s *RateStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM rates WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package pg

import (
	"context"
	"iter"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"

	"github.com/jackc/pgx/v5"
)

var (
	_ application.OrderImpactStore = (*OrderImpactStore)(nil)
	_ application.Expirer          = (*OrderImpactStore)(nil)
)

// listPageSize bounds each keyset page read by ListByStore.
const listPageSize = 100

type OrderImpactStore struct {
	db       *DB
	pageSize int
}

func NewOrderImpactStore(db *DB) *OrderImpactStore {
	return &OrderImpactStore{db: db, pageSize: listPageSize}
}

func (s *OrderImpactStore) Put(ctx context.Context, rec domain.OrderImpactRecord) error {
	const up = `
        INSERT INTO order_impacts(order_id, store_id, order_date, order_amount, order_rate,
                                  current_rate, margin_loss, percentage_change, calculated_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (order_id, store_id) DO UPDATE
          SET order_date=EXCLUDED.order_date,
              order_amount=EXCLUDED.order_amount,
              order_rate=EXCLUDED.order_rate,
              current_rate=EXCLUDED.current_rate,
              margin_loss=EXCLUDED.margin_loss,
              percentage_change=EXCLUDED.percentage_change,
              calculated_at=EXCLUDED.calculated_at,
              expires_at=EXCLUDED.expires_at`
	_, err := s.db.conn(ctx).Exec(ctx, up,
		rec.OrderID, rec.StoreID, rec.OrderDate, rec.OrderAmount, rec.OrderRate,
		rec.CurrentRate, rec.MarginLoss, rec.PercentageChange, rec.Timestamp, rec.ExpiresAt)
	return err
}

// ListByStore pages through the store's records with a (order_date, order_id)
// cursor, issuing one query per page.
func (s *OrderImpactStore) ListByStore(ctx context.Context, storeID string, r application.DateRange) iter.Seq2[domain.OrderImpactRecord, error] {
	return func(yield func(domain.OrderImpactRecord, error) bool) {
		var (
			cursorDate *time.Time
			cursorID   string
		)
		for {
			page, err := s.page(ctx, storeID, r, cursorDate, cursorID)
			if err != nil {
				yield(domain.OrderImpactRecord{}, err)
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			last := page[len(page)-1]
			cursorDate, cursorID = &last.OrderDate, last.OrderID
		}
	}
}

func (s *OrderImpactStore) page(ctx context.Context, storeID string, r application.DateRange, cursorDate *time.Time, cursorID string) ([]domain.OrderImpactRecord, error) {
	const q = `
        SELECT order_id, store_id, order_date, order_amount, order_rate,
               current_rate, margin_loss, percentage_change, calculated_at, expires_at
        FROM order_impacts
        WHERE store_id = $1
          AND ($2::timestamptz IS NULL OR order_date >= $2)
          AND ($3::timestamptz IS NULL OR order_date <= $3)
          AND ($4::timestamptz IS NULL OR (order_date, order_id) < ($4, $5))
        ORDER BY order_date DESC, order_id DESC
        LIMIT $6`
	rows, err := s.db.conn(ctx).Query(ctx, q,
		storeID, optTime(r.From), optTime(r.To), cursorDate, cursorID, s.pageSize)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderImpactRecord, error) {
		var rec domain.OrderImpactRecord
		err := row.Scan(&rec.OrderID, &rec.StoreID, &rec.OrderDate, &rec.OrderAmount, &rec.OrderRate,
			&rec.CurrentRate, &rec.MarginLoss, &rec.PercentageChange, &rec.Timestamp, &rec.ExpiresAt)
		rec.OrderDate = rec.OrderDate.UTC()
		rec.Timestamp = rec.Timestamp.UTC()
		rec.ExpiresAt = rec.ExpiresAt.UTC()
		return rec, err
	})
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *OrderImpactStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.conn(ctx).Exec(ctx, `DELETE FROM order_impacts WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
)

// Postgres is the production PortfolioStore backed by pgx.
//
// Expected schema:
//
//	users        (id TEXT PRIMARY KEY, credit NUMERIC NOT NULL)
//	positions    (user_id TEXT, symbol TEXT, quantity NUMERIC, avg_cost NUMERIC,
//	              last_updated TIMESTAMPTZ, PRIMARY KEY (user_id, symbol))
//	transactions (id UUID PRIMARY KEY, user_id TEXT, symbol TEXT, side TEXT,
//	              quantity NUMERIC, price NUMERIC, total NUMERIC, ts TIMESTAMPTZ)
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres store over an existing pool.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) GetUser(ctx context.Context, id string) (model.User, error) {
	var credit string
	err := p.db.QueryRow(ctx,
		`SELECT credit::text FROM users WHERE id = $1`, id,
	).Scan(&credit)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	user := model.User{ID: id, Positions: make(map[string]model.Position)}
	if user.Credit, err = decimal.NewFromString(credit); err != nil {
		return model.User{}, fmt.Errorf("invalid credit for user %s: %w", id, err)
	}

	rows, err := p.db.Query(ctx,
		`SELECT symbol, quantity::text, avg_cost::text, last_updated
		 FROM positions WHERE user_id = $1`, id,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load positions for user %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pos               model.Position
			quantity, avgCost string
		)
		if err := rows.Scan(&pos.Symbol, &quantity, &avgCost, &pos.LastUpdated); err != nil {
			return model.User{}, fmt.Errorf("failed to scan position: %w", err)
		}
		if pos.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return model.User{}, fmt.Errorf("invalid quantity for %s: %w", pos.Symbol, err)
		}
		if pos.AvgCost, err = decimal.NewFromString(avgCost); err != nil {
			return model.User{}, fmt.Errorf("invalid avg_cost for %s: %w", pos.Symbol, err)
		}
		user.Positions[pos.Symbol] = pos
	}
	if err := rows.Err(); err != nil {
		return model.User{}, fmt.Errorf("failed to read positions: %w", err)
	}

	return user, nil
}

func (p *Postgres) CreateUser(ctx context.Context, id string, credit decimal.Decimal) (model.User, error) {
	tag, err := p.db.Exec(ctx,
		`INSERT INTO users (id, credit) VALUES ($1, $2::numeric)
		 ON CONFLICT (id) DO NOTHING`,
		id, credit.String(),
	)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user %s: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		p.logger.Info("account created", "user", id, "credit", credit)
		return model.User{ID: id, Credit: credit, Positions: make(map[string]model.Position)}, nil
	}

	// Already exists: hand back the stored account.
	return p.GetUser(ctx, id)
}

func (p *Postgres) ApplyOrder(ctx context.Context, update OrderUpdate) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET credit = $2::numeric WHERE id = $1`,
			update.UserID, update.Credit.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to update credit: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}

		if update.Position == nil {
			if _, err := tx.Exec(ctx,
				`DELETE FROM positions WHERE user_id = $1 AND symbol = $2`,
				update.UserID, update.Symbol,
			); err != nil {
				return fmt.Errorf("failed to delete position: %w", err)
			}
		} else {
			pos := update.Position
			if _, err := tx.Exec(ctx,
				`INSERT INTO positions (user_id, symbol, quantity, avg_cost, last_updated)
				 VALUES ($1, $2, $3::numeric, $4::numeric, $5)
				 ON CONFLICT (user_id, symbol) DO UPDATE SET
				     quantity = EXCLUDED.quantity,
				     avg_cost = EXCLUDED.avg_cost,
				     last_updated = EXCLUDED.last_updated`,
				update.UserID, pos.Symbol, pos.Quantity.String(), pos.AvgCost.String(), pos.LastUpdated,
			); err != nil {
				return fmt.Errorf("failed to upsert position: %w", err)
			}
		}

		txn := update.Transaction
		if _, err := tx.Exec(ctx,
			`INSERT INTO transactions (id, user_id, symbol, side, quantity, price, total, ts)
			 VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8)`,
			txn.ID.String(), txn.UserID, txn.Symbol, string(txn.Side),
			txn.Quantity.String(), txn.Price.String(), txn.Total.String(), txn.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		return nil
	})
}

func (p *Postgres) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id::text, symbol, side, quantity::text, price::text, total::text, ts
		 FROM transactions WHERE user_id = $1 ORDER BY ts DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			txn                    model.Transaction
			id, side               string
			quantity, price, total string
			ts                     time.Time
		)
		if err := rows.Scan(&id, &txn.Symbol, &side, &quantity, &price, &total, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if txn.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid transaction id %s: %w", id, err)
		}
		if txn.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("invalid quantity: %w", err)
		}
		if txn.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid price: %w", err)
		}
		if txn.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("invalid total: %w", err)
		}
		txn.UserID = userID
		txn.Side = model.Side(side)
		txn.Timestamp = ts
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	return out, nil
}

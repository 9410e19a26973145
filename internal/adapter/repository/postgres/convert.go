package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/infrastructure/postgres/generated"
	"github.com/iho/ledgerbot/internal/usecase"
)

var errForeignTx = errors.New("postgres: transaction was not started by this adapter")

func txQueries(tx usecase.Transaction) (*generated.Queries, error) {
	pgxTx, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errForeignTx, tx)
	}
	return generated.New(pgxTx.PgxTx()), nil
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bi-dashboard/internal/entities"
)

const voucherTable = "voucher_sales"

var voucherCopyColumns = []string{"sale_date", "network_id", "branch_id", "employee_id", "quantity", "amount", "import_run_id"}

type VoucherRepositoryInterface interface {
	DeleteRange(ctx context.Context, tx pgx.Tx, networkIDs []uint64, from, to time.Time) (int64, error)
	CopySales(ctx context.Context, tx pgx.Tx, sales []entities.VoucherSale) (int64, error)
}

type VoucherRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewVoucherRepository(storage *pgxpool.Pool, logger *zap.Logger) VoucherRepositoryInterface {
	return &VoucherRepository{storage: storage, logger: logger}
}

// DeleteRange удаляет продажи сетей за период [from, to]: повторная выгрузка того же периода заменяет старую.
func (r *VoucherRepository) DeleteRange(ctx context.Context, tx pgx.Tx, networkIDs []uint64, from, to time.Time) (int64, error) {
	if len(networkIDs) == 0 {
		return 0, nil
	}
	query, args, err := sq.Delete(voucherTable).
		Where(sq.Eq{"network_id": networkIDs}).
		Where(sq.GtOrEq{"sale_date": from}).
		Where(sq.LtOrEq{"sale_date": to}).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := pick(r.storage, tx).Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления продаж за период: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CopySales - массовая вставка через COPY.
func (r *VoucherRepository) CopySales(ctx context.Context, tx pgx.Tx, sales []entities.VoucherSale) (int64, error) {
	if len(sales) == 0 {
		return 0, nil
	}
	n, err := pick(r.storage, tx).CopyFrom(ctx,
		pgx.Identifier{voucherTable},
		voucherCopyColumns,
		pgx.CopyFromSlice(len(sales), func(i int) ([]any, error) {
			s := sales[i]
			var employeeID any
			if s.EmployeeID != nil {
				employeeID = int64(*s.EmployeeID)
			}
			return []any{
				s.SaleDate,
				int64(s.NetworkID),
				int64(s.BranchID),
				employeeID,
				s.Quantity,
				numericFromDecimal(s.Amount),
				pgtype.UUID{Bytes: s.ImportRunID, Valid: true},
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка загрузки продаж: %w", err)
	}
	return n, nil
}

func numericFromDecimal(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// decimalFromText разбирает SUM(...)::text; NULL приходит пустой строкой после COALESCE.
func decimalFromText(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

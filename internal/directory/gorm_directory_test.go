package directory

import (
	"context"
	"errors"
	"testing"

	"cashup-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDirectory(t *testing.T) (sqlmock.Sqlmock, *GormDirectory) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return mock, NewGormDirectory(db)
}

func idRows(id int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

func TestGormDirectoryCreateBusinessWithOwner(t *testing.T) {
	mock, d := setupMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "businesses"`).WillReturnRows(idRows(3))
	mock.ExpectQuery(`INSERT INTO "personnels?"`).WillReturnRows(idRows(5))
	mock.ExpectCommit()

	b := &models.Business{Name: "corner"}
	owner := &models.Personnel{Name: "Olive", Email: "olive@corner.test", PasswordHash: "x"}
	require.NoError(t, d.CreateBusinessWithOwner(context.Background(), b, owner))

	assert.Equal(t, uint(3), b.ID)
	assert.Equal(t, uint(5), owner.ID)
	assert.Equal(t, uint(3), owner.BusinessID)
	assert.True(t, owner.IsOwner)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDirectoryCreateBusinessRollsBackOnDuplicateOwner(t *testing.T) {
	mock, d := setupMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "businesses"`).WillReturnRows(idRows(3))
	mock.ExpectQuery(`INSERT INTO "personnels?"`).WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectRollback()

	err := d.CreateBusinessWithOwner(context.Background(),
		&models.Business{Name: "corner"},
		&models.Personnel{Email: "olive@corner.test", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDirectoryCreateOutletAddsCreator(t *testing.T) {
	mock, d := setupMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "outlets"`).WillReturnRows(idRows(8))
	mock.ExpectQuery(`INSERT INTO "staff_positions"`).WillReturnRows(idRows(1))
	mock.ExpectCommit()

	o := &models.Outlet{BusinessID: 3, Name: "high-street", DefaultFloat: decimal.RequireFromString("25.00")}
	require.NoError(t, d.CreateOutlet(context.Background(), o, 5))
	assert.Equal(t, uint(8), o.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDirectoryCreateOutletRollsBack(t *testing.T) {
	mock, d := setupMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "outlets"`).WillReturnRows(idRows(8))
	mock.ExpectQuery(`INSERT INTO "staff_positions"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := d.CreateOutlet(context.Background(), &models.Outlet{BusinessID: 3, Name: "high-street"}, 5)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDirectoryGetOutletByNameNotFound(t *testing.T) {
	mock, d := setupMockDirectory(t)

	mock.ExpectQuery(`SELECT \* FROM "outlets" WHERE business_id = \$1 AND name = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "name"}))

	_, err := d.GetOutletByName(context.Background(), 3, "high-street")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDirectoryStaffOutletsManagerOnly(t *testing.T) {
	mock, d := setupMockDirectory(t)

	rows := sqlmock.NewRows([]string{"id", "business_id", "name", "default_float"}).
		AddRow(2, 3, "corner", "20.00").
		AddRow(8, 3, "high-street", "25.00")
	mock.ExpectQuery(`FROM "outlets" JOIN staff_positions sp ON sp.outlet_id = outlets.id WHERE sp.personnel_id = \$1 AND sp.is_manager = \$2 ORDER BY outlets.name ASC`).
		WithArgs(7, true).
		WillReturnRows(rows)

	outlets, err := d.StaffOutlets(context.Background(), 7, true)
	require.NoError(t, err)
	require.Len(t, outlets, 2)
	assert.Equal(t, "corner", outlets[0].Name)
	assert.Equal(t, "25.00", outlets[1].DefaultFloat.StringFixed(2))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDirectoryUpsertPosition(t *testing.T) {
	mock, d := setupMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "staff_positions" .* ON CONFLICT \("outlet_id","personnel_id"\) DO UPDATE SET`).
		WillReturnRows(idRows(4))
	mock.ExpectCommit()

	p := &models.StaffPosition{OutletID: 8, PersonnelID: 7, IsManager: true, IsStaff: true}
	require.NoError(t, d.UpsertPosition(context.Background(), p))
	assert.Equal(t, uint(4), p.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDirectoryRemovePosition(t *testing.T) {
	mock, d := setupMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "staff_positions" WHERE outlet_id = \$1 AND personnel_id = \$2`).
		WithArgs(8, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, d.RemovePosition(context.Background(), 8, 7))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "staff_positions"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	assert.ErrorIs(t, d.RemovePosition(context.Background(), 8, 7), ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

package data

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrRecordNotFound = errors.New("record not found")
)

// DBTX is a common interface for *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Models groups every repository over a single connection.
type Models struct {
	Clients      ClientModel
	Sites        SiteModel
	Cameras      CameraModel
	Windows      WindowConfigModel
	Detections   TamperingDetectionModel
	Events       TamperingEventModel
	Capabilities CapabilityModel
}

func NewModels(db DBTX) Models {
	return Models{
		Clients:      ClientModel{DB: db},
		Sites:        SiteModel{DB: db},
		Cameras:      CameraModel{DB: db},
		Windows:      WindowConfigModel{DB: db},
		Detections:   TamperingDetectionModel{DB: db},
		Events:       TamperingEventModel{DB: db},
		Capabilities: CapabilityModel{DB: db},
	}
}

func rowsAffected(res sql.Result) error {
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

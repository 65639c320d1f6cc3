package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"photo-ingest/internal/logging"
)

// ErrNotFound is returned when no asset matches the given id or key.
var ErrNotFound = errors.New("asset not found")

// InsertAsset persists a new asset row and fills in a.ID.
//
// The insert is idempotent on original_key: a retry after a previous
// attempt that partially succeeded finds the existing row and returns
// its id instead of creating a duplicate.
func (d *Database) InsertAsset(ctx context.Context, a *Asset) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return 0, fmt.Errorf("failed to encode tags: %w", err)
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO assets (
			original_key, thumbnail_key, content_type, byte_size,
			width, height, folder, description, alt_text, tags,
			owner_principal_id, album_id,
			iso, exposure_seconds, f_number, focal_length_mm,
			device_label, location_label, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(original_key) DO NOTHING
	`,
		a.OriginalKey, a.ThumbnailKey, a.ContentType, a.ByteSize,
		a.Width, a.Height, a.Folder, a.Description, a.AltText, string(tags),
		a.OwnerPrincipalID, a.AlbumID,
		a.ISO, a.ExposureSeconds, a.FNumber, a.FocalLengthMm,
		a.DeviceLabel, a.LocationLabel, a.CreatedAt.Unix(),
	)
	observe("insert_asset", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to insert asset: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		// A previous attempt already persisted this key.
		logging.Debug("InsertAsset: row for %s already exists, resolving id", a.OriginalKey)
		var id int64
		err := d.db.QueryRowContext(ctx,
			"SELECT id FROM assets WHERE original_key = ?", a.OriginalKey,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve existing asset id: %w", err)
		}
		a.ID = id
		return id, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	a.ID = id
	return id, nil
}

// GetAsset retrieves one asset by id.
func (d *Database) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, selectAssetColumns+" WHERE id = ?", id)
	a, err := scanAsset(row)
	observe("get_asset", start, err)
	return a, err
}

// GetAssetByKey retrieves one asset by its original storage key.
func (d *Database) GetAssetByKey(ctx context.Context, originalKey string) (*Asset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, selectAssetColumns+" WHERE original_key = ?", originalKey)
	a, err := scanAsset(row)
	observe("get_asset_by_key", start, err)
	return a, err
}

// ListAssets returns one page of assets, newest first, optionally
// filtered by folder.
func (d *Database) ListAssets(ctx context.Context, folder string, page, pageSize int) (*AssetListing, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var (
		total int
		err   error
	)
	if folder != "" {
		err = d.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM assets WHERE folder = ?", folder).Scan(&total)
	} else {
		err = d.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM assets").Scan(&total)
	}
	if err != nil {
		observe("list_assets", start, err)
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}

	query := selectAssetColumns
	args := []interface{}{}
	if folder != "" {
		query += " WHERE folder = ?"
		args = append(args, folder)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := d.db.QueryContext(ctx, query, args...)
	observe("list_assets", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("failed to close rows: %v", err)
		}
	}()

	listing := &AssetListing{
		Items:      []Asset{},
		TotalItems: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		listing.Items = append(listing.Items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating assets: %w", err)
	}

	return listing, nil
}

// DeleteAsset removes an asset row and returns its storage keys so the
// caller can reclaim the two objects.
func (d *Database) DeleteAsset(ctx context.Context, id int64) (originalKey, thumbnailKey string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err = d.db.QueryRowContext(ctx,
		"SELECT original_key, thumbnail_key FROM assets WHERE id = ?", id,
	).Scan(&originalKey, &thumbnailKey)
	if errors.Is(err, sql.ErrNoRows) {
		observe("delete_asset", start, nil)
		return "", "", ErrNotFound
	}
	if err != nil {
		observe("delete_asset", start, err)
		return "", "", fmt.Errorf("failed to load asset keys: %w", err)
	}

	_, err = d.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	observe("delete_asset", start, err)
	if err != nil {
		return "", "", fmt.Errorf("failed to delete asset: %w", err)
	}

	return originalKey, thumbnailKey, nil
}

// CountAssets returns the total number of persisted assets.
func (d *Database) CountAssets(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assets: %w", err)
	}
	return count, nil
}

const selectAssetColumns = `
	SELECT id, original_key, thumbnail_key, content_type, byte_size,
		width, height, folder, description, alt_text, tags,
		owner_principal_id, album_id,
		iso, exposure_seconds, f_number, focal_length_mm,
		device_label, location_label, created_at
	FROM assets`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(s scanner) (*Asset, error) {
	var (
		a         Asset
		tags      string
		createdAt int64
	)

	err := s.Scan(
		&a.ID, &a.OriginalKey, &a.ThumbnailKey, &a.ContentType, &a.ByteSize,
		&a.Width, &a.Height, &a.Folder, &a.Description, &a.AltText, &tags,
		&a.OwnerPrincipalID, &a.AlbumID,
		&a.ISO, &a.ExposureSeconds, &a.FNumber, &a.FocalLengthMm,
		&a.DeviceLabel, &a.LocationLabel, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		logging.Warn("asset %d has malformed tags column: %v", a.ID, err)
		a.Tags = nil
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &a, nil
}

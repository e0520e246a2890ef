package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hferris/lumen/internal/model"
)

type GalleryStore struct {
	db *sql.DB
}

func NewGalleryStore(db *sql.DB) *GalleryStore {
	return &GalleryStore{db: db}
}

const galleryCols = `id, account_id, booking_id, slug, title, pin_hash, created_at, updated_at`

func scanGallery(scanner interface{ Scan(...any) error }) (*model.Gallery, error) {
	var g model.Gallery
	err := scanner.Scan(&g.ID, &g.AccountID, &g.BookingID, &g.Slug, &g.Title, &g.PINHash, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GalleryStore) Create(accountID, bookingID int64, title, pinHash string) (*model.Gallery, error) {
	result, err := s.db.Exec(
		`INSERT INTO galleries (account_id, booking_id, slug, title, pin_hash) VALUES (?, ?, ?, ?, ?)`,
		accountID, bookingID, uuid.NewString(), title, pinHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert gallery: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *GalleryStore) GetByID(id int64) (*model.Gallery, error) {
	row := s.db.QueryRow(`SELECT `+galleryCols+` FROM galleries WHERE id = ?`, id)
	g, err := scanGallery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get gallery: %w", err)
	}
	return g, nil
}

func (s *GalleryStore) GetBySlug(slug string) (*model.Gallery, error) {
	row := s.db.QueryRow(`SELECT `+galleryCols+` FROM galleries WHERE slug = ?`, slug)
	g, err := scanGallery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get gallery by slug: %w", err)
	}
	return g, nil
}

func (s *GalleryStore) GetByBookingID(bookingID int64) (*model.Gallery, error) {
	row := s.db.QueryRow(`SELECT `+galleryCols+` FROM galleries WHERE booking_id = ?`, bookingID)
	g, err := scanGallery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get gallery by booking: %w", err)
	}
	return g, nil
}

func (s *GalleryStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM galleries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete gallery: %w", err)
	}
	return nil
}

func (s *GalleryStore) AddPhoto(galleryID int64, objectKey, filename, contentType string, sizeBytes int64) (*model.Photo, error) {
	result, err := s.db.Exec(
		`INSERT INTO photos (gallery_id, object_key, filename, content_type, size_bytes) VALUES (?, ?, ?, ?, ?)`,
		galleryID, objectKey, filename, contentType, sizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetPhoto(id)
}

const photoCols = `id, gallery_id, object_key, filename, content_type, size_bytes, created_at`

func scanPhoto(scanner interface{ Scan(...any) error }) (*model.Photo, error) {
	var p model.Photo
	err := scanner.Scan(&p.ID, &p.GalleryID, &p.ObjectKey, &p.Filename, &p.ContentType, &p.SizeBytes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GalleryStore) GetPhoto(id int64) (*model.Photo, error) {
	row := s.db.QueryRow(`SELECT `+photoCols+` FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	return p, nil
}

func (s *GalleryStore) ListPhotos(galleryID int64) ([]model.Photo, error) {
	rows, err := s.db.Query(
		`SELECT `+photoCols+` FROM photos WHERE gallery_id = ? ORDER BY created_at ASC, id ASC`,
		galleryID,
	)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var photos []model.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

func (s *GalleryStore) DeletePhoto(id int64) error {
	_, err := s.db.Exec(`DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

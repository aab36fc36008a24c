package services

// In-memory store fakes mirroring the semantics of the pgx repositories,
// including the atomicity of the pairing transaction (one mutex stands in
// for the row locks).

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"photo-exchange-backend/internal/models"
	"photo-exchange-backend/internal/repository"
)

var errBlobUnavailable = errors.New("blob store unavailable")

type memPhotoStore struct {
	mu     sync.Mutex
	nextID int64
	photos map[int64]*models.Photo

	failCreate    error
	failMarkReady error
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{photos: make(map[int64]*models.Photo)}
}

func clonePhoto(p *models.Photo) *models.Photo {
	c := *p
	return &c
}

func (s *memPhotoStore) Create(ctx context.Context, photo *models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	s.nextID++
	photo.ID = s.nextID
	photo.State = models.StateExchanging
	photo.Partner = models.PendingPartner()
	if photo.UploadedOn.IsZero() {
		photo.UploadedOn = time.Now().UTC()
	}
	s.photos[photo.ID] = clonePhoto(photo)
	return nil
}

func (s *memPhotoStore) GetByID(ctx context.Context, id int64) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePhoto(p), nil
}

func (s *memPhotoStore) GetByName(ctx context.Context, name string) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.photos {
		if p.Name == name {
			return clonePhoto(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memPhotoStore) PairWithOldestReady(ctx context.Context, photoID, userID int64) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidate *models.Photo
	for _, p := range s.photos {
		if p.State != models.StateReadyToExchange || p.UserID == userID || p.DeletedOn != nil {
			continue
		}
		if candidate == nil ||
			p.UploadedOn.Before(candidate.UploadedOn) ||
			(p.UploadedOn.Equal(candidate.UploadedOn) && p.ID < candidate.ID) {
			candidate = p
		}
	}
	if candidate == nil {
		return nil, repository.ErrNoCandidate
	}

	self, ok := s.photos[photoID]
	if !ok || self.State != models.StateExchanging {
		return nil, repository.ErrConflict
	}

	candidate.State = models.StateExchanged
	candidate.Partner = models.PartnerOf(photoID)
	self.State = models.StateExchanged
	self.Partner = models.PartnerOf(candidate.ID)
	return clonePhoto(candidate), nil
}

func (s *memPhotoStore) MarkReady(ctx context.Context, photoID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMarkReady != nil {
		return s.failMarkReady
	}
	p, ok := s.photos[photoID]
	if !ok || p.State != models.StateExchanging {
		return repository.ErrConflict
	}
	p.State = models.StateReadyToExchange
	p.Partner = models.NoPartner()
	return nil
}

func (s *memPhotoStore) ClaimAbandoned(ctx context.Context, photoID int64, olderThan, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[photoID]
	if !ok || p.State != models.StateReadyToExchange || !p.UploadedOn.Before(olderThan) || p.DeletedOn != nil {
		return repository.ErrConflict
	}
	t := at
	p.DeletedOn = &t
	return nil
}

func (s *memPhotoStore) SoftDelete(ctx context.Context, photoID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.photos[photoID]; ok && p.DeletedOn == nil {
		t := at
		p.DeletedOn = &t
	}
	return nil
}

func (s *memPhotoStore) SoftDeleteByUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.photos {
		if p.UserID == userID && p.DeletedOn == nil {
			t := at
			p.DeletedOn = &t
			n++
		}
	}
	return n, nil
}

func (s *memPhotoStore) Delete(ctx context.Context, photoID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.photos, photoID)
	return nil
}

func (s *memPhotoStore) list(filter func(*models.Photo) bool, limit int) []*models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Photo
	for _, p := range s.photos {
		if filter(p) {
			out = append(out, clonePhoto(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *memPhotoStore) ListAbandoned(ctx context.Context, olderThan time.Time, limit int) ([]*models.Photo, error) {
	return s.list(func(p *models.Photo) bool {
		return p.State == models.StateReadyToExchange && p.UploadedOn.Before(olderThan) && p.DeletedOn == nil
	}, limit), nil
}

func (s *memPhotoStore) ListExchangedOlder(ctx context.Context, olderThan time.Time, limit int) ([]*models.Photo, error) {
	return s.list(func(p *models.Photo) bool {
		return p.State == models.StateExchanged && p.UploadedOn.Before(olderThan) && p.DeletedOn == nil
	}, limit), nil
}

func (s *memPhotoStore) ListDeletedBefore(ctx context.Context, deletedBefore time.Time, limit int) ([]*models.Photo, error) {
	return s.list(func(p *models.Photo) bool {
		return p.DeletedOn != nil && p.DeletedOn.Before(deletedBefore)
	}, limit), nil
}

func (s *memPhotoStore) IPHashesForUser(ctx context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var hashes []string
	for _, p := range s.photos {
		if p.UserID == userID && p.IPHash != "" && !seen[p.IPHash] {
			seen[p.IPHash] = true
			hashes = append(hashes, p.IPHash)
		}
	}
	return hashes, nil
}

func (s *memPhotoStore) CountUploadedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.photos {
		if p.UserID == userID && p.UploadedOn.After(since) && p.DeletedOn == nil {
			count++
		}
	}
	return count, nil
}

func (s *memPhotoStore) CountReceivedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.photos {
		if p.UserID != userID || p.State != models.StateExchanged {
			continue
		}
		partnerID, ok := p.Partner.PhotoID()
		if !ok {
			continue
		}
		partner, ok := s.photos[partnerID]
		if !ok {
			continue
		}
		exchangedAt := p.UploadedOn
		if partner.UploadedOn.After(exchangedAt) {
			exchangedAt = partner.UploadedOn
		}
		if exchangedAt.After(since) {
			count++
		}
	}
	return count, nil
}

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[int64]*models.User)}
}

func (s *memUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *memUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (s *memUserStore) GetByUUID(ctx context.Context, uuid string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.UUID == uuid {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memUserStore) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.LastLoginAt = at
	}
	return nil
}

func (s *memUserStore) UpdatePushToken(ctx context.Context, userID int64, pushToken *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.PushToken = pushToken
	}
	return nil
}

type favKey struct{ photoID, userID int64 }

type memGalleryStore struct {
	mu         sync.Mutex
	nextID     int64
	rows       []models.GalleryPhoto
	favourites map[favKey]bool
	reports    map[favKey]bool
	photos     *memPhotoStore
}

func newMemGalleryStore(photos *memPhotoStore) *memGalleryStore {
	return &memGalleryStore{
		favourites: make(map[favKey]bool),
		reports:    make(map[favKey]bool),
		photos:     photos,
	}
}

func (s *memGalleryStore) Insert(ctx context.Context, photoID int64, uploadedOn time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.PhotoID == photoID {
			return nil
		}
	}
	s.nextID++
	s.rows = append(s.rows, models.GalleryPhoto{ID: s.nextID, PhotoID: photoID, UploadedOn: uploadedOn})
	return nil
}

func (s *memGalleryStore) Page(ctx context.Context, before time.Time, limit int) ([]models.GalleryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.GalleryEntry
	for _, row := range s.rows {
		if !row.UploadedOn.Before(before) {
			continue
		}
		photo, err := s.photos.GetByID(ctx, row.PhotoID)
		if err != nil || photo.DeletedOn != nil {
			continue
		}
		entries = append(entries, models.GalleryEntry{GalleryPhoto: row, PhotoName: photo.Name})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].UploadedOn.Equal(entries[j].UploadedOn) {
			return entries[i].UploadedOn.After(entries[j].UploadedOn)
		}
		return entries[i].ID > entries[j].ID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *memGalleryStore) CountSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, row := range s.rows {
		photo, err := s.photos.GetByID(ctx, row.PhotoID)
		if err != nil || photo.DeletedOn != nil {
			continue
		}
		if row.UploadedOn.After(since) {
			count++
		}
	}
	return count, nil
}

func (s *memGalleryStore) DeleteForPhoto(ctx context.Context, photoID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.rows[:0]
	for _, row := range s.rows {
		if row.PhotoID != photoID {
			out = append(out, row)
		}
	}
	s.rows = out
	return nil
}

func (s *memGalleryStore) DeleteForUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.rows[:0]
	for _, row := range s.rows {
		photo, err := s.photos.GetByID(ctx, row.PhotoID)
		if err == nil && photo.UserID == userID {
			continue
		}
		out = append(out, row)
	}
	s.rows = out
	return nil
}

func (s *memGalleryStore) SetFavourite(ctx context.Context, photoID, userID int64, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := favKey{photoID, userID}
	if value {
		s.favourites[k] = true
	} else {
		delete(s.favourites, k)
	}
	return nil
}

func (s *memGalleryStore) IsFavourited(ctx context.Context, photoID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favourites[favKey{photoID, userID}], nil
}

func (s *memGalleryStore) SetReport(ctx context.Context, photoID, userID int64, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := favKey{photoID, userID}
	if value {
		s.reports[k] = true
	} else {
		delete(s.reports, k)
	}
	return nil
}

func (s *memGalleryStore) IsReported(ctx context.Context, photoID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[favKey{photoID, userID}], nil
}

type memBanStore struct {
	mu     sync.Mutex
	users  map[int64]bool
	hashes map[string]bool
}

func newMemBanStore() *memBanStore {
	return &memBanStore{users: make(map[int64]bool), hashes: make(map[string]bool)}
}

func (s *memBanStore) IsBanned(ctx context.Context, userID int64, ipHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID] || (ipHash != "" && s.hashes[ipHash]), nil
}

func (s *memBanStore) BanUser(ctx context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = true
	return nil
}

func (s *memBanStore) BanIPHash(ctx context.Context, ipHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ipHash != "" {
		s.hashes[ipHash] = true
	}
	return nil
}

type memMapStore struct {
	mu     sync.Mutex
	nextID int64
	maps   map[int64]*models.LocationMap
}

func newMemMapStore() *memMapStore {
	return &memMapStore{maps: make(map[int64]*models.LocationMap)}
}

func (s *memMapStore) Create(ctx context.Context, m *models.LocationMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	c := *m
	s.maps[m.ID] = &c
	return nil
}

func (s *memMapStore) GetByPhotoID(ctx context.Context, photoID int64) (*models.LocationMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.maps {
		if m.PhotoID == photoID {
			c := *m
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memMapStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.LocationMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*models.LocationMap
	for _, m := range s.maps {
		if m.Status == models.MapStatusEmpty && !m.NextAttemptAt.After(now) {
			c := *m
			due = append(due, &c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memMapStore) MarkReady(ctx context.Context, id int64, tileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.maps[id]; ok {
		m.Status = models.MapStatusReady
		k := tileKey
		m.TileKey = &k
	}
	return nil
}

func (s *memMapStore) MarkFailed(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.maps[id]; ok {
		m.Status = models.MapStatusFailed
	}
	return nil
}

func (s *memMapStore) Reschedule(ctx context.Context, id int64, attempts int, nextAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.maps[id]; ok {
		m.Attempts = attempts
		m.NextAttemptAt = nextAt
	}
	return nil
}

type memBlobStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failDelete map[string]bool
	putCalls   int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{
		objects:    make(map[string][]byte),
		failDelete: make(map[string]bool),
	}
}

func (s *memBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	s.objects[key] = data
	return nil
}

func (s *memBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[key] {
		return errBlobUnavailable
	}
	delete(s.objects, key)
	return nil
}

func (s *memBlobStore) URL(key string) string {
	return "https://blobs.test/" + key
}

func (s *memBlobStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

type exchangedEvent struct {
	ownerID   int64
	waitingID int64
	arrivedID int64
}

type captureEvents struct {
	mu     sync.Mutex
	events []exchangedEvent
}

func (c *captureEvents) PhotoExchanged(ctx context.Context, owner *models.User, waiting, arrived *models.Photo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, exchangedEvent{
		ownerID:   owner.ID,
		waitingID: waiting.ID,
		arrivedID: arrived.ID,
	})
}

func (c *captureEvents) all() []exchangedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]exchangedEvent(nil), c.events...)
}

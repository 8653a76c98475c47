package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/entpool/internal/chunk"
)

var (
	ErrNotFound       = errors.New("save not found")
	ErrDigestMismatch = errors.New("digest mismatch")
)

// Digest is the BLAKE2b-256 sum used for whole files and single chunks.
func Digest(b []byte) [32]byte { return blake2b.Sum256(b) }

// SaveInfo describes one archived save file.
type SaveInfo struct {
	ID        int64
	Name      string
	Size      int
	Chunks    int
	Digest    [32]byte
	CreatedAt time.Time
}

// storedChunk is one row of save_chunks.
type storedChunk struct {
	Seq     int16
	Kind    string
	Header  chunk.Header
	Payload []byte
	Digest  []byte
}

// SaveRepo stores save files split into their chunks so single chunks can
// be verified and inspected in SQL.
type SaveRepo struct {
	db *DB
}

func NewSaveRepo(db *DB) *SaveRepo {
	return &SaveRepo{db: db}
}

// Put stores data under name, replacing any earlier save with that name.
func (r *SaveRepo) Put(ctx context.Context, name string, data []byte) (SaveInfo, error) {
	rows, err := splitRows(data)
	if err != nil {
		return SaveInfo{}, err
	}
	info := SaveInfo{Name: name, Size: len(data), Chunks: len(rows), Digest: Digest(data)}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return SaveInfo{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM saves WHERE name = $1`, name); err != nil {
		return SaveInfo{}, fmt.Errorf("replace %s: %w", name, err)
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO saves (name, digest, size) VALUES ($1, $2, $3) RETURNING id, created_at`,
		name, info.Digest[:], info.Size,
	).Scan(&info.ID, &info.CreatedAt)
	if err != nil {
		return SaveInfo{}, fmt.Errorf("insert save %s: %w", name, err)
	}

	batch := &pgx.Batch{}
	for _, c := range rows {
		batch.Queue(
			`INSERT INTO save_chunks (save_id, seq, kind, magic, version, payload, digest)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			info.ID, c.Seq, c.Kind, int32(c.Header.Magic), int64(c.Header.Version), c.Payload, c.Digest,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return SaveInfo{}, fmt.Errorf("insert chunks of %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return SaveInfo{}, fmt.Errorf("commit: %w", err)
	}

	r.db.log.Info("存檔已歸檔",
		zap.String("name", name),
		zap.Int("size", info.Size),
		zap.Int("chunks", info.Chunks))
	return info, nil
}

// Get returns the save stored under name after checking every digest.
func (r *SaveRepo) Get(ctx context.Context, name string) ([]byte, error) {
	var (
		id     int64
		digest []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, digest FROM saves WHERE name = $1`, name,
	).Scan(&id, &digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT seq, kind, magic, version, payload, digest
		 FROM save_chunks WHERE save_id = $1 ORDER BY seq`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stored []storedChunk
	for rows.Next() {
		var (
			c       storedChunk
			magic   int32
			version int64
		)
		if err := rows.Scan(&c.Seq, &c.Kind, &magic, &version, &c.Payload, &c.Digest); err != nil {
			return nil, err
		}
		c.Header = chunk.Header{Magic: uint16(magic), Version: uint32(version), Length: uint32(len(c.Payload))}
		stored = append(stored, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	data, err := assemble(stored, digest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return data, nil
}

// List returns every archived save, newest first.
func (r *SaveRepo) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT s.id, s.name, s.size, s.digest, s.created_at, count(c.seq)
		 FROM saves s LEFT JOIN save_chunks c ON c.save_id = s.id
		 GROUP BY s.id ORDER BY s.created_at DESC, s.id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SaveInfo
	for rows.Next() {
		var (
			info   SaveInfo
			digest []byte
		)
		if err := rows.Scan(&info.ID, &info.Name, &info.Size, &digest, &info.CreatedAt, &info.Chunks); err != nil {
			return nil, err
		}
		copy(info.Digest[:], digest)
		result = append(result, info)
	}
	return result, rows.Err()
}

// Delete removes a save and its chunks. Returns true if it existed.
func (r *SaveRepo) Delete(ctx context.Context, name string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM saves WHERE name = $1`, name)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func splitRows(data []byte) ([]storedChunk, error) {
	raws, err := chunk.Split(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, errors.New("save holds no chunks")
	}
	rows := make([]storedChunk, len(raws))
	for i, raw := range raws {
		sum := Digest(raw.Payload)
		rows[i] = storedChunk{
			Seq:     int16(i),
			Kind:    raw.Kind(),
			Header:  raw.Header,
			Payload: raw.Payload,
			Digest:  sum[:],
		}
	}
	return rows, nil
}

// assemble re-frames stored chunks in order and checks them against their
// own digests and the file digest.
func assemble(rows []storedChunk, want []byte) ([]byte, error) {
	var buf bytes.Buffer
	for i, c := range rows {
		if int(c.Seq) != i {
			return nil, fmt.Errorf("chunk %d missing", i)
		}
		sum := Digest(c.Payload)
		if !bytes.Equal(sum[:], c.Digest) {
			return nil, fmt.Errorf("%s chunk %d: %w", c.Kind, c.Seq, ErrDigestMismatch)
		}
		buf.Write(chunk.Raw{Header: c.Header, Payload: c.Payload}.Bytes())
	}
	sum := Digest(buf.Bytes())
	if !bytes.Equal(sum[:], want) {
		return nil, fmt.Errorf("file: %w", ErrDigestMismatch)
	}
	return buf.Bytes(), nil
}

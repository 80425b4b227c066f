// Package mongo implements VectorStore backed by MongoDB.
//
// Embeddings are stored as plain numeric arrays in BSON; MongoDB has no
// native vector index here, so Search loads the candidate set and ranks it
// in-process with exact cosine similarity. Results are exact, cost grows
// linearly with the candidate count.
package mongo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/spetr/docvec/pkg/provider"
	"github.com/spetr/docvec/pkg/types"
	"github.com/spetr/docvec/pkg/vectormath"
)

// Default values
const (
	DefaultDatabase   = "vectordb"
	DefaultCollection = "embeddings"
	ConnectTimeout    = 10 * time.Second
)

// metaDocID keys the single document that records the provisioned index
// configuration, so a dimension change is detected on re-create.
const metaDocID = "vector_index"

// Config contains MongoDB store configuration.
type Config struct {
	URI        string // full connection string
	Database   string
	Collection string
}

// Store implements the VectorStore interface on MongoDB.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	meta       *mongo.Collection
	dimension  int
}

// record is the BSON shape of one stored chunk embedding. The chunk
// identity doubles as _id so upserts are natural overwrites.
type record struct {
	ID             string    `bson:"_id"`
	DocumentName   string    `bson:"document_name"`
	Text           string    `bson:"text"`
	PageNumber     int       `bson:"page_number"`
	ChunkIndex     int       `bson:"chunk_index"`
	Source         string    `bson:"source"`
	FileType       string    `bson:"file_type"`
	Embedding      []float64 `bson:"embedding"`
	EmbeddingModel string    `bson:"embedding_model"`
	Dimension      int       `bson:"embedding_dimension"`
	CreatedAt      time.Time `bson:"created_at"`
}

type metaDoc struct {
	ID        string    `bson:"_id"`
	Dimension int       `bson:"dimension"`
	Metric    string    `bson:"metric"`
	CreatedAt time.Time `bson:"created_at"`
}

// New connects to MongoDB and returns the store. Connection failures are
// reported as types.ErrBackendUnavailable.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: mongodb connect: %v", types.ErrBackendUnavailable, err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: mongodb ping: %v", types.ErrBackendUnavailable, err)
	}

	db := client.Database(cfg.Database)
	return &Store{
		client:     client,
		collection: db.Collection(cfg.Collection),
		meta:       db.Collection(cfg.Collection + "_meta"),
	}, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "mongodb"
}

// CreateIndex provisions the store for the given dimension. The first call
// records the dimension and creates the supporting scalar indexes;
// repeated calls with the same dimension are no-ops, a different dimension
// fails with types.ErrConfigConflict and leaves the store untouched.
func (s *Store) CreateIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", types.ErrInvalidArgument, dimension)
	}

	var existing metaDoc
	err := s.meta.FindOne(ctx, bson.M{"_id": metaDocID}).Decode(&existing)
	switch {
	case err == nil:
		if existing.Dimension != dimension {
			return fmt.Errorf("%w: index has dimension %d, requested %d",
				types.ErrConfigConflict, existing.Dimension, dimension)
		}
		s.dimension = dimension
		return nil
	case err != mongo.ErrNoDocuments:
		return fmt.Errorf("read index meta: %w", err)
	}

	_, err = s.meta.InsertOne(ctx, metaDoc{
		ID:        metaDocID,
		Dimension: dimension,
		Metric:    "cosine",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		// Lost a race with a concurrent creator; re-read and compare.
		if mongo.IsDuplicateKeyError(err) {
			return s.CreateIndex(ctx, dimension)
		}
		return fmt.Errorf("write index meta: %w", err)
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "file_type", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create scalar indexes: %w", err)
	}

	s.dimension = dimension
	return nil
}

// Upsert writes or overwrites one record keyed by its chunk identity.
func (s *Store) Upsert(ctx context.Context, rec *types.EmbeddingRecord) error {
	dim, err := s.provisionedDimension(ctx)
	if err != nil {
		return err
	}
	if len(rec.Embedding) != dim {
		return fmt.Errorf("%w: got %d, store expects %d",
			types.ErrDimensionMismatch, len(rec.Embedding), dim)
	}

	doc := record{
		ID:             rec.ID(),
		DocumentName:   rec.DocumentName,
		Text:           rec.Text,
		PageNumber:     rec.PageNumber,
		ChunkIndex:     rec.ChunkIndex,
		Source:         rec.Source,
		FileType:       string(rec.FileType),
		Embedding:      vectormath.ToFloat64(rec.Embedding),
		EmbeddingModel: rec.EmbeddingModel,
		Dimension:      len(rec.Embedding),
		CreatedAt:      rec.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err = s.collection.ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongodb upsert: %w", err)
	}
	return nil
}

// Search scans the candidate set and ranks it in-process by exact cosine
// similarity. Ties are broken by ascending chunk index so results are
// stable across runs.
func (s *Store) Search(ctx context.Context, queryVec []float32, topK int, fileType types.FileType) ([]types.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", types.ErrInvalidArgument, topK)
	}
	if fileType != "" && !types.ValidFileType(fileType) {
		return nil, fmt.Errorf("%w: unknown file type %q", types.ErrInvalidArgument, fileType)
	}

	dim, err := s.provisionedDimension(ctx)
	if err != nil {
		return nil, err
	}
	if len(queryVec) != dim {
		return nil, fmt.Errorf("%w: query has %d, store expects %d",
			types.ErrDimensionMismatch, len(queryVec), dim)
	}

	filter := bson.M{}
	if fileType != "" {
		filter["file_type"] = string(fileType)
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var results []types.SearchResult
	for cursor.Next(ctx) {
		var doc record
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongodb decode: %w", err)
		}
		score := vectormath.Cosine(queryVec, vectormath.ToFloat32(doc.Embedding))
		results = append(results, types.SearchResult{
			Chunk: types.Chunk{
				DocumentName: doc.DocumentName,
				Text:         doc.Text,
				PageNumber:   doc.PageNumber,
				ChunkIndex:   doc.ChunkIndex,
				Source:       doc.Source,
				FileType:     types.FileType(doc.FileType),
			},
			Score: score,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb cursor: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteBySource removes every record of the given source document.
func (s *Store) DeleteBySource(ctx context.Context, source string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"source": source})
	if err != nil {
		return fmt.Errorf("mongodb delete: %w", err)
	}
	return nil
}

// Stats returns total and per-file-type chunk counts.
func (s *Store) Stats(ctx context.Context) (*types.StoreStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$file_type"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongodb aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &types.StoreStats{ByFileType: make(map[types.FileType]int)}
	for cursor.Next(ctx) {
		var group struct {
			FileType string `bson:"_id"`
			Count    int    `bson:"count"`
		}
		if err := cursor.Decode(&group); err != nil {
			return nil, fmt.Errorf("mongodb decode stats: %w", err)
		}
		stats.ByFileType[types.FileType(group.FileType)] = group.Count
		stats.TotalChunks += group.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb cursor: %w", err)
	}
	return stats, nil
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", types.ErrBackendUnavailable, err)
	}
	return nil
}

// Exec runs one bootstrap command. For MongoDB the command is a database
// command in extended JSON, e.g.
//
//	runCommand {"createIndexes": "embeddings", "indexes": [...]}
//
// The tokens after "runCommand" are joined back into the JSON document.
func (s *Store) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: empty command", types.ErrInvalidArgument)
	}
	if args[0] != "runCommand" {
		return fmt.Errorf("%w: unknown mongodb command %q", types.ErrInvalidArgument, args[0])
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: runCommand needs a JSON document", types.ErrInvalidArgument)
	}

	var cmd bson.D
	raw := strings.Join(args[1:], " ")
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &cmd); err != nil {
		return fmt.Errorf("%w: parse command document: %v", types.ErrInvalidArgument, err)
	}

	if err := s.collection.Database().RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("mongodb runCommand: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// provisionedDimension returns the dimension recorded at CreateIndex,
// loading it from the meta collection when this process did not run the
// provisioning itself.
func (s *Store) provisionedDimension(ctx context.Context) (int, error) {
	if s.dimension > 0 {
		return s.dimension, nil
	}

	var meta metaDoc
	err := s.meta.FindOne(ctx, bson.M{"_id": metaDocID}).Decode(&meta)
	if err == mongo.ErrNoDocuments {
		return 0, fmt.Errorf("%w: vector index not provisioned", types.ErrInvalidConfig)
	}
	if err != nil {
		return 0, fmt.Errorf("read index meta: %w", err)
	}
	s.dimension = meta.Dimension
	return s.dimension, nil
}

// Ensure Store implements the interfaces
var (
	_ provider.VectorStore     = (*Store)(nil)
	_ provider.CommandExecutor = (*Store)(nil)
)

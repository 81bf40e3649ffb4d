package qdrantDB

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var qdrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)

type ClientHolder struct {
	qObj *qdrant.Client
}

func GetQdrantClient(ctx context.Context) *ClientHolder {

	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			qdrantInstance = res
			go closeQdrant(ctx, qdrantInstance)
		}
	})

	if qdrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		qObj: qdrantInstance,
	}
}

func newClient() *qdrant.Client {

	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

// Collection ensures the named collection exists and returns an Index bound
// to it. One collection per document category.
func (db *ClientHolder) Collection(ctx context.Context, name string) (vectorDB.Index, error) {
	if err := createCollection(ctx, db.qObj, name); err != nil {
		logger.Error("could not create collection: ", "collectionName", name, "error:", err)
		return nil, err
	}
	return &collectionIndex{client: db.qObj, name: name}, nil
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return err
}

type collectionIndex struct {
	client *qdrant.Client
	name   string
}

func (ix *collectionIndex) Upsert(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunk and vector counts do not match")
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.Id),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":       chunk.Text,
				"chunk_id":      chunk.Id,
				"parent_id":     chunk.Meta.ParentId,
				"source_doc_id": chunk.Meta.SourceDocId,
				"doc_name":      chunk.Meta.DocName,
				"file_type":     string(chunk.Meta.FileType),
				"category":      string(chunk.Meta.Category),
				"access_group":  chunk.Meta.AccessGroup,
				"page":          int64(chunk.Meta.Page),
				"sheet_name":    chunk.Meta.SheetName,
				"slide_number":  int64(chunk.Meta.SlideNumber),
				"ingested_at":   chunk.Meta.IngestedAt.Unix(),
			}),
		}
	}

	_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ix.name,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	return err
}

func (ix *collectionIndex) Search(ctx context.Context, vector []float32, k int, groups security.GroupSet) ([]vectorDB.Hit, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "collection", ix.name)

	query := &qdrant.QueryPoints{
		CollectionName: ix.name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         accessFilter(groups),
	}

	result, err := ix.client.Query(ctx, query)
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	hits := make([]vectorDB.Hit, 0, len(result))
	for _, point := range result {
		hits = append(hits, vectorDB.Hit{
			Chunk: chunkFromPayload(point.Payload),
			Score: point.Score,
		})
	}
	return hits, nil
}

func (ix *collectionIndex) DeleteByDocument(ctx context.Context, documentId string) error {
	_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: ix.name,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("source_doc_id", documentId)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	return err
}

// accessFilter pushes the permitted-group check into the query itself so the
// caller's k is the accessible k.
func accessFilter(groups security.GroupSet) *qdrant.Filter {
	if groups.AllowsEverything() {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatchKeywords("access_group", groups...),
		},
	}
}

func chunkFromPayload(payload map[string]*qdrant.Value) commonModels.Chunk {
	return commonModels.Chunk{
		Id:   payload["chunk_id"].GetStringValue(),
		Text: payload["content"].GetStringValue(),
		Meta: commonModels.ChunkMeta{
			SourceDocId: payload["source_doc_id"].GetStringValue(),
			DocName:     payload["doc_name"].GetStringValue(),
			FileType:    commonModels.DocType(payload["file_type"].GetStringValue()),
			Category:    commonModels.Category(payload["category"].GetStringValue()),
			AccessGroup: payload["access_group"].GetStringValue(),
			ParentId:    payload["parent_id"].GetStringValue(),
			Page:        int(payload["page"].GetIntegerValue()),
			SheetName:   payload["sheet_name"].GetStringValue(),
			SlideNumber: int(payload["slide_number"].GetIntegerValue()),
			IngestedAt:  time.Unix(payload["ingested_at"].GetIntegerValue(), 0),
		},
	}
}

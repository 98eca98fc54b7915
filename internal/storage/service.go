package storage

import (
	"context"
	"fmt"
	"strings"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const DefaultCollection = "ingredient_catalog"

// Service handles interactions with the Qdrant vector database
type Service struct {
	conn         *grpc.ClientConn
	client       qdrant.CollectionsClient
	pointsClient qdrant.PointsClient
	collection   string
}

// NewService creates a new storage service
func NewService(host string, port int, collection string) (*Service, error) {
	conn, err := grpc.Dial(fmt.Sprintf("%s:%d", host, port), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	s := newService(qdrant.NewCollectionsClient(conn), qdrant.NewPointsClient(conn), collection)
	s.conn = conn
	return s, nil
}

func newService(collections qdrant.CollectionsClient, points qdrant.PointsClient, collection string) *Service {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Service{
		client:       collections,
		pointsClient: points,
		collection:   collection,
	}
}

// Close closes the gRPC connection
func (s *Service) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Collection returns the collection name
func (s *Service) Collection() string {
	return s.collection
}

// InitializeCollection creates the collection if it doesn't exist
func (s *Service) InitializeCollection(ctx context.Context, dim int) error {
	_, err := s.client.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dim),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	return nil
}

// DeleteCollection drops the collection and every point in it
func (s *Service) DeleteCollection(ctx context.Context) error {
	_, err := s.client.Delete(ctx, &qdrant.DeleteCollection{CollectionName: s.collection})
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", s.collection, err)
	}
	return nil
}

// pointID maps a catalog index to a Qdrant point id
func pointID(entry int) *qdrant.PointId {
	return &qdrant.PointId{
		PointIdOptions: &qdrant.PointId_Num{Num: uint64(entry) + 1},
	}
}

// entryIndex is the inverse of pointID
func entryIndex(id *qdrant.PointId) int {
	return int(id.GetNum()) - 1
}

// Point is one stored catalog vector
type Point struct {
	Entry   int
	Vector  []float32
	Payload map[string]any
}

// UpsertPoints updates or inserts points in the collection
func (s *Service) UpsertPoints(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &qdrant.PointStruct{
			Id: pointID(p.Entry),
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: p.Vector},
				},
			},
			Payload: toPayload(p.Payload),
		}
	}

	wait := true
	_, err := s.pointsClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// DeletePoints removes the points of the given catalog entries
func (s *Service) DeletePoints(ctx context.Context, entries []int) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, len(entries))
	for i, e := range entries {
		ids[i] = pointID(e)
	}

	_, err := s.pointsClient.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d points: %w", len(entries), err)
	}
	return nil
}

// ScrollPoints retrieves all points from the collection, with payloads and
// vectors
func (s *Service) ScrollPoints(ctx context.Context) ([]*qdrant.RetrievedPoint, error) {
	var allPoints []*qdrant.RetrievedPoint
	var offset *qdrant.PointId
	var limit uint32 = 100

	for {
		resp, err := s.pointsClient.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &qdrant.WithPayloadSelector{
				SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
			},
			WithVectors: &qdrant.WithVectorsSelector{
				SelectorOptions: &qdrant.WithVectorsSelector_Enable{Enable: true},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll points: %w", err)
		}

		allPoints = append(allPoints, resp.Result...)
		if len(resp.Result) < int(limit) || resp.NextPageOffset == nil {
			break
		}

		offset = resp.NextPageOffset
	}

	return allPoints, nil
}

// toPayload converts a payload map to Qdrant values
func toPayload(payload map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for key, value := range payload {
		switch v := value.(type) {
		case string:
			out[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		case bool:
			out[key] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v}}
		case float64:
			out[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
		case int:
			out[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}
		case int64:
			out[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}
		case nil:
			continue
		default:
			out[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", v)}}
		}
	}
	return out
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

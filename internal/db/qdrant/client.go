// Package qdrant adapts the Qdrant gRPC API to the search.VectorIndex port.
package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cuongday/CosmoChatbot/internal/domain/catalog"
	"github.com/cuongday/CosmoChatbot/internal/domain/search"
	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// Client talks to a Qdrant instance over gRPC. Safe for concurrent use; the
// underlying connection multiplexes requests.
type Client struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

// New dials Qdrant at the given gRPC address (host:port).
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dial qdrant %s: %v", search.ErrIndexBackend, addr, err)
	}
	return &Client{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	list, err := c.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("%w: list collections: %v", search.ErrIndexBackend, err)
	}
	for _, coll := range list.GetCollections() {
		if coll.GetName() == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) CollectionDims(ctx context.Context, name string) (int, error) {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	info, err := c.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		return 0, fmt.Errorf("%w: get collection %s: %v", search.ErrIndexBackend, name, err)
	}
	params := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	return int(params.GetSize()), nil
}

func (c *Client) CreateCollection(ctx context.Context, name string, dims int, metric search.DistanceMetric) error {
	if dims <= 0 {
		return fmt.Errorf("%w: collection %s: invalid vector size %d", search.ErrIndexConfig, name, dims)
	}
	distance, err := toDistance(metric)
	if err != nil {
		return err
	}
	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: distance,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %v", search.ErrIndexBackend, name, err)
	}
	return nil
}

func (c *Client) DropCollection(ctx context.Context, name string) error {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		applog.Info("[Qdrant] Drop skipped, collection absent", "collection", name)
		return nil
	}
	if _, err := c.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
		return fmt.Errorf("%w: drop collection %s: %v", search.ErrIndexBackend, name, err)
	}
	return nil
}

func (c *Client) Upsert(ctx context.Context, name string, docs []search.ProductDocument) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	points := make([]*pb.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: d.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: d.Vector},
				},
			},
			Payload: productPayload(d),
		}
	}

	wait := true
	_, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: upsert %d points into %s: %v", search.ErrIndexBackend, len(points), name, err)
	}
	return len(points), nil
}

func (c *Client) Search(ctx context.Context, name string, vector []float32, topK int) ([]search.Hit, error) {
	exists, err := c.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		// An un-synced deployment is not an error; the caller falls back.
		return []search.Hit{}, nil
	}

	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %v", search.ErrIndexBackend, name, err)
	}

	hits := make([]search.Hit, len(resp.GetResult()))
	for i, point := range resp.GetResult() {
		product, text := productFromPayload(point.GetPayload())
		hits[i] = search.Hit{
			Product: product,
			Text:    text,
			// Cosine scores from Qdrant are similarities, higher is better.
			Relevance: float64(point.GetScore()),
		}
	}
	return hits, nil
}

func toDistance(metric search.DistanceMetric) (pb.Distance, error) {
	switch metric {
	case search.DistanceCosine:
		return pb.Distance_Cosine, nil
	case search.DistanceDot:
		return pb.Distance_Dot, nil
	case search.DistanceEuclid:
		return pb.Distance_Euclid, nil
	default:
		return pb.Distance_UnknownDistance, fmt.Errorf("%w: unsupported distance metric %q", search.ErrIndexConfig, metric)
	}
}

func productPayload(d search.ProductDocument) map[string]*pb.Value {
	p := d.Product
	payload := map[string]*pb.Value{
		"product_id": stringValue(p.ID),
		"name":       stringValue(p.Name),
		"price":      {Kind: &pb.Value_DoubleValue{DoubleValue: p.Price}},
		"quantity":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Quantity)}},
		"text":       stringValue(d.Text),
	}
	if p.Description != "" {
		payload["description"] = stringValue(p.Description)
	}
	if p.Image != "" {
		payload["image_url"] = stringValue(p.Image)
	}
	if p.Category != "" {
		payload["category"] = stringValue(p.Category)
	}
	if p.Status != "" {
		payload["status"] = stringValue(p.Status)
	}
	return payload
}

func productFromPayload(payload map[string]*pb.Value) (catalog.Product, string) {
	var text string
	var p catalog.Product
	for k, v := range payload {
		switch k {
		case "product_id":
			p.ID = v.GetStringValue()
		case "name":
			p.Name = v.GetStringValue()
		case "description":
			p.Description = v.GetStringValue()
		case "price":
			p.Price = v.GetDoubleValue()
		case "quantity":
			p.Quantity = int(v.GetIntegerValue())
		case "image_url":
			p.Image = v.GetStringValue()
		case "category":
			p.Category = v.GetStringValue()
		case "status":
			p.Status = v.GetStringValue()
		case "text":
			text = v.GetStringValue()
		}
	}
	return p, text
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

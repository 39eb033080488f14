package trendtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	rpcPath      = "/api/rpc"
	rpcCacheSize = 512
	rpcCacheTTL  = 15 * time.Minute
)

// Api talks json-rpc to the console endpoint. Responses are cached per
// method+params for a short window since the console recomputes its
// metrics at most a few times per hour.
type Api struct {
	http  *resty.Client
	cache *expirable.LRU[string, []byte]
	reqId atomic.Int64
}

func newApi(client *resty.Client) *Api {
	return &Api{
		http:  client,
		cache: expirable.NewLRU[string, []byte](rpcCacheSize, nil, rpcCacheTTL),
	}
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a console rpc method and unmarshals its result into
// out. Identical calls within the cache window are answered locally.
func (a *Api) Call(ctx context.Context, method string, params any, out any) error {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("rpc:%s", method))
	defer span.End()

	span.SetAttributes(attribute.String("method", method))

	rawParams, err := json.Marshal(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize params")
		return err
	}

	cacheKey := method + ":" + string(rawParams)
	if cached, ok := a.cache.Get(cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return json.Unmarshal(cached, out)
	}

	body := map[string]any{
		"jsonrpc": "2.0",
		"id":      a.reqId.Add(1),
		"method":  method,
		"params":  json.RawMessage(rawParams),
	}

	res, err := a.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(rpcPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return err
	}
	if res.StatusCode() >= 400 {
		err := fmt.Errorf("rpc %s: status %d", method, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(res.Body(), &envelope); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse json response")
		return err
	}
	if envelope.Error != nil {
		span.RecordError(envelope.Error)
		span.SetStatus(codes.Error, envelope.Error.Message)
		return envelope.Error
	}

	a.cache.Add(cacheKey, envelope.Result)
	return json.Unmarshal(envelope.Result, out)
}

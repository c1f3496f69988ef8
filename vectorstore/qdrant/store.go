// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package qdrant stores course vector collections in a Qdrant server over its
// REST API. Each course maps to one Qdrant collection using cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/vectorstore"
)

const (
	payloadItemIDKey  = "_item_id"
	payloadTextKey    = "_text"
	maxErrorBodyBytes = 1024
)

var pointIDNamespace = uuid.MustParse("6b1f2c9e-4d0a-4f3b-9a57-2f1c8e0d7a31")

// Store is a vectorstore.Store backed by Qdrant.
type Store struct {
	baseURL   string
	apiKey    string
	vectorDim int
	http      *http.Client
	logger    *slog.Logger

	// created caches collections known to exist.
	created sync.Map
}

var _ vectorstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithAPIKey sets the api-key header sent with every request.
func WithAPIKey(key string) Option {
	return func(s *Store) error {
		s.apiKey = strings.TrimSpace(key)
		return nil
	}
}

// WithVectorDim sets the vector size used when creating collections.
// Default 0 takes the size of the first upserted vector.
func WithVectorDim(dim int) Option {
	return func(s *Store) error {
		if dim < 0 {
			return fmt.Errorf("vector dimension must be non-negative, got %d", dim)
		}
		s.vectorDim = dim
		return nil
	}
}

// WithHTTPClient sets the HTTP client.
// Default is a client with a 10 second timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		s.http = client
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a store talking to the Qdrant server at baseURL.
func New(baseURL string, opts ...Option) (*Store, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, opErr("init", OperationErrorValidation, "qdrant url is required", nil)
	}
	s := &Store{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "qdrant")
	return s, nil
}

type searchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float32         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// Upsert writes items as points of the course collection, creating it on first use.
func (s *Store) Upsert(ctx context.Context, courseID core.ID, items []vectorstore.Item) (int, error) {
	const op = "upsert"
	if len(items) == 0 {
		return 0, nil
	}
	name := vectorstore.CollectionName(courseID)

	dim := s.vectorDim
	if dim == 0 {
		dim = len(items[0].Vector)
	}
	points := make([]map[string]any, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return 0, opErr(op, OperationErrorValidation, "vector item id is required", nil)
		}
		if len(item.Vector) == 0 || len(item.Vector) != dim {
			return 0, opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector %q dimension mismatch: expected=%d got=%d", id, dim, len(item.Vector)), nil)
		}
		payload := make(map[string]any, len(item.Metadata)+2)
		for k, v := range item.Metadata {
			payload[k] = v
		}
		payload[payloadItemIDKey] = id
		payload[payloadTextKey] = item.Text
		points = append(points, map[string]any{
			"id":      pointID(name, id),
			"vector":  item.Vector,
			"payload": payload,
		})
	}

	if err := s.ensureCollection(ctx, name, dim); err != nil {
		return 0, err
	}
	req := map[string]any{"points": points}
	if err := s.doJSON(ctx, op, http.MethodPut, collectionPath(name, "/points?wait=true"), req, nil); err != nil {
		return 0, err
	}
	return len(points), nil
}

// Query searches the course collection. A missing collection yields no hits.
func (s *Store) Query(ctx context.Context, courseID core.ID, vector []float32, topK int, filter map[string]any) ([]vectorstore.Hit, error) {
	const op = "query"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := translateFilter(vectorstore.CleanFilter(filter)); f != nil {
		req["filter"] = f
	}

	var raw []searchResultItem
	err := s.doJSON(ctx, op, http.MethodPost, collectionPath(vectorstore.CollectionName(courseID), "/points/search"), req, &raw)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	hits := make([]vectorstore.Hit, 0, len(raw))
	for _, item := range raw {
		hits = append(hits, toHit(item))
	}
	slices.SortStableFunc(hits, func(a, b vectorstore.Hit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return hits, nil
}

// Count returns the exact point count of the course collection, 0 when missing.
func (s *Store) Count(ctx context.Context, courseID core.ID) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	err := s.doJSON(ctx, "count", http.MethodPost,
		collectionPath(vectorstore.CollectionName(courseID), "/points/count"), map[string]any{"exact": true}, &result)
	if IsNotFound(err) {
		return 0, nil
	}
	return result.Count, err
}

// DeleteCollection drops the course collection. Missing collections are ignored.
func (s *Store) DeleteCollection(ctx context.Context, courseID core.ID) error {
	name := vectorstore.CollectionName(courseID)
	s.created.Delete(name)
	err := s.doJSON(ctx, "delete_collection", http.MethodDelete, collectionPath(name, ""), nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// ListCollections returns every collection on the server in lexical order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	var result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}
	if err := s.doJSON(ctx, "list_collections", http.MethodGet, "/collections", nil, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Collections))
	for _, c := range result.Collections {
		names = append(names, c.Name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) ensureCollection(ctx context.Context, name string, dim int) error {
	if _, ok := s.created.Load(name); ok {
		return nil
	}
	err := s.doJSON(ctx, "get_collection", http.MethodGet, collectionPath(name, ""), nil, nil)
	if IsNotFound(err) {
		req := map[string]any{
			"vectors": map[string]any{"size": dim, "distance": "Cosine"},
		}
		err = s.doJSON(ctx, "create_collection", http.MethodPut, collectionPath(name, ""), req, nil)
		if err == nil {
			s.logger.Info("created collection", "collection", name, "dim", dim)
		}
	}
	if err != nil {
		return err
	}
	s.created.Store(name, struct{}{})
	return nil
}

func (s *Store) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Status json.RawMessage `json:"status"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := envelopeError(envelope.Status); msg != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func envelopeError(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.EqualFold(text, "ok") || strings.EqualFold(text, "acknowledged") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", text)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "qdrant status=" + status
}

// translateFilter turns equality conditions into a qdrant must filter.
func translateFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	must := make([]any, 0, len(keys))
	for _, k := range keys {
		must = append(must, map[string]any{"key": k, "match": map[string]any{"value": filter[k]}})
	}
	return map[string]any{"must": must}
}

func toHit(item searchResultItem) vectorstore.Hit {
	hit := vectorstore.Hit{Score: item.Score, Metadata: make(map[string]any, len(item.Payload))}
	for k, v := range item.Payload {
		switch k {
		case payloadItemIDKey:
			hit.ID, _ = v.(string)
		case payloadTextKey:
			hit.Text, _ = v.(string)
		default:
			hit.Metadata[k] = v
		}
	}
	if hit.ID == "" {
		hit.ID = strings.Trim(string(item.ID), "\"")
	}
	return hit
}

func pointID(collection, itemID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(collection+"|"+itemID)).String()
}

func collectionPath(name, suffix string) string {
	return "/collections/" + name + suffix
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

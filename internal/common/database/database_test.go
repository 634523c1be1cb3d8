package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vehicle-financing/internal/common/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))
}

func TestElasticsearchClient_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "healthy cluster", status: http.StatusOK},
		{name: "unavailable cluster", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
			require.NoError(t, err)

			err = client.Ping(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresClient_PoolSettings(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "localhost", Port: 5432, Database: "financing", User: "u",
		SSLMode: "disable", MaxConnections: 7, MaxIdle: 2,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 7, client.DB.Stats().MaxOpenConnections)
}

func TestPostgresClient_RegisterMetrics(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "localhost", Port: 5432, Database: "financing", User: "u",
		SSLMode: "disable", MaxConnections: 4, MaxIdle: 9,
	})
	require.NoError(t, err)
	defer client.Close()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, client.RegisterMetrics(reg))
	assert.Error(t, client.RegisterMetrics(reg), "second registration collides")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "go_sql_max_open_connections" {
			continue
		}
		found = true
		require.Len(t, mf.GetMetric(), 1)
		assert.Equal(t, 4.0, mf.GetMetric()[0].GetGauge().GetValue())
		assert.Equal(t, "financing", mf.GetMetric()[0].GetLabel()[0].GetValue())
	}
	assert.True(t, found)
}

func TestRedisClient_RegisterMetrics(t *testing.T) {
	mr := miniredis.RunT(t)

	client := NewRedis(config.RedisConfig{Address: mr.Addr(), PoolSize: 3, MinIdle: 1})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, client.RegisterMetrics(reg))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]float64)
	for _, mf := range families {
		m := mf.GetMetric()[0]
		if m.GetGauge() != nil {
			names[mf.GetName()] = m.GetGauge().GetValue()
		} else {
			names[mf.GetName()] = m.GetCounter().GetValue()
		}
	}
	assert.Len(t, names, 6)
	assert.Contains(t, names, "redis_pool_hits_total")
	assert.GreaterOrEqual(t, names["redis_pool_connections"], 1.0)
}

func TestElasticsearchClient_EnsureIndex(t *testing.T) {
	tests := []struct {
		name        string
		existStatus int
		wantCreated bool
		wantPut     bool
		wantErr     bool
	}{
		{name: "missing index is created", existStatus: http.StatusNotFound, wantCreated: true, wantPut: true},
		{name: "existing index is kept", existStatus: http.StatusOK},
		{name: "cluster error", existStatus: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var put bool
			var body string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				assert.Equal(t, "/vehicle-valuations", r.URL.Path)
				switch r.Method {
				case http.MethodHead:
					w.WriteHeader(tt.existStatus)
				case http.MethodPut:
					put = true
					b, _ := io.ReadAll(r.Body)
					body = string(b)
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write([]byte(`{"acknowledged":true,"index":"vehicle-valuations"}`))
				default:
					w.WriteHeader(http.StatusMethodNotAllowed)
				}
			}))
			defer srv.Close()

			client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
			require.NoError(t, err)

			created, err := client.EnsureIndex(context.Background(), "vehicle-valuations", []byte(`{"mappings":{}}`))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			assert.Equal(t, tt.wantPut, put)
			if tt.wantPut {
				assert.JSONEq(t, `{"mappings":{}}`, body)
			}
		})
	}
}

package params

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
)

const (
	defaultNamespace   = "/demandcast/params"
	defaultDialTimeout = 5 * time.Second
	lookupCacheTTL     = 30 * time.Second
)

// EtcdStore implements Store using etcd
type EtcdStore struct {
	client    *clientv3.Client
	cache     *setCache
	namespace string
}

// NewEtcdStore connects to etcd and returns a store rooted at the
// configured namespace
func NewEtcdStore(cfg config.ParamsConfig) (*EtcdStore, error) {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	return &EtcdStore{
		client:    client,
		cache:     newSetCache(lookupCacheTTL),
		namespace: namespace,
	}, nil
}

func (s *EtcdStore) key(category string) string {
	return path.Join(s.namespace, category)
}

func (s *EtcdStore) Get(ctx context.Context, category string) (forecast.HyperparameterSet, error) {
	// Check cache first. Negative results are cached too so repeated
	// lookups for untuned categories skip etcd.
	if cached, ok := s.cache.Get(category); ok {
		if !cached.found {
			return forecast.HyperparameterSet{}, fmt.Errorf("category %s: %w", category, ErrNotFound)
		}
		var set forecast.HyperparameterSet
		if err := json.Unmarshal(cached.data, &set); err == nil {
			return set, nil
		}
	}

	resp, err := s.client.Get(ctx, s.key(category))
	if err != nil {
		return forecast.HyperparameterSet{}, fmt.Errorf("failed to get hyperparameters from etcd: %w", err)
	}

	if len(resp.Kvs) == 0 {
		s.cache.Set(category, setValue{found: false})
		return forecast.HyperparameterSet{}, fmt.Errorf("category %s: %w", category, ErrNotFound)
	}

	var set forecast.HyperparameterSet
	if err := json.Unmarshal(resp.Kvs[0].Value, &set); err != nil {
		return forecast.HyperparameterSet{}, fmt.Errorf("failed to unmarshal hyperparameters: %w", err)
	}

	s.cache.Set(category, setValue{data: resp.Kvs[0].Value, found: true})
	return set, nil
}

func (s *EtcdStore) Put(ctx context.Context, set forecast.HyperparameterSet) error {
	if err := set.Validate(); err != nil {
		return fmt.Errorf("invalid hyperparameter set: %w", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal hyperparameters: %w", err)
	}

	_, err = s.client.Put(ctx, s.key(set.Category), string(data))
	if err != nil {
		return fmt.Errorf("failed to store hyperparameters in etcd: %w", err)
	}

	s.cache.Set(set.Category, setValue{data: data, found: true})
	return nil
}

func (s *EtcdStore) List(ctx context.Context) ([]forecast.HyperparameterSet, error) {
	prefix := s.namespace + "/"

	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list hyperparameters from etcd: %w", err)
	}

	sets := make([]forecast.HyperparameterSet, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var set forecast.HyperparameterSet
		if err := json.Unmarshal(kv.Value, &set); err != nil {
			// Skip malformed entries but keep listing
			continue
		}
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Category < sets[j].Category })

	return sets, nil
}

func (s *EtcdStore) Delete(ctx context.Context, category string) error {
	resp, err := s.client.Delete(ctx, s.key(category))
	if err != nil {
		return fmt.Errorf("failed to delete hyperparameters from etcd: %w", err)
	}
	if resp.Deleted == 0 {
		return fmt.Errorf("category %s: %w", category, ErrNotFound)
	}

	s.cache.Delete(category)
	return nil
}

func (s *EtcdStore) Close() error {
	if s.cache != nil {
		s.cache.Stop()
	}
	return s.client.Close()
}

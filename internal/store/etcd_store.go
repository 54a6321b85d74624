package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/auto-dns/docker-traceability/internal/config"
	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Close() error
}

type EtcdStore struct {
	client etcdClient
	cfg    *config.EtcdConfig
	owner  string
	logger zerolog.Logger
}

func NewEtcdStore(client etcdClient, cfg *config.EtcdConfig, logger zerolog.Logger) *EtcdStore {
	return &EtcdStore{
		client: client,
		cfg:    cfg,
		owner:  uuid.NewString(),
		logger: logger,
	}
}

// ListItems retrieves all registry items stored under the configured prefix.
func (es *EtcdStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	resp, err := es.client.Get(ctx, itemsPrefix(es.cfg.PathPrefix), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]domain.Item, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		item, err := unmarshalItem(kv.Value)
		if err != nil {
			es.logger.Error().Err(err).Msgf("[etcd_store] Failed to parse item key: %s", kv.Key)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadOrCreateItem writes the item only if its key has never been created.
func (es *EtcdStore) LoadOrCreateItem(ctx context.Context, item domain.Item) (domain.Item, bool, error) {
	key := itemKey(es.cfg.PathPrefix, item.Name)
	value, err := marshalItem(item)
	if err != nil {
		return domain.Item{}, false, err
	}
	resp, err := es.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, value)).
		Else(clientv3.OpGet(key)).
		Commit()
	if err != nil {
		return domain.Item{}, false, fmt.Errorf("create item %q: %w", item.Name, err)
	}
	if resp.Succeeded {
		es.logger.Info().Msgf("[etcd_store] Created item %s", key)
		return item, true, nil
	}
	if len(resp.Responses) == 0 {
		return domain.Item{}, false, fmt.Errorf("load item %q: empty transaction response", item.Name)
	}
	kvs := resp.Responses[0].GetResponseRange().GetKvs()
	if len(kvs) == 0 {
		return domain.Item{}, false, fmt.Errorf("load item %q: key %s vanished", item.Name, key)
	}
	existing, err := unmarshalItem(kvs[0].Value)
	if err != nil {
		return domain.Item{}, false, fmt.Errorf("load item %q: %w", item.Name, err)
	}
	return existing, false, nil
}

func (es *EtcdStore) FindRun(ctx context.Context, jobName string, runType domain.RunType, dockerID string) (*domain.Run, error) {
	idxKey := indexKey(es.cfg.PathPrefix, jobName, runType, dockerID)
	resp, err := es.client.Get(ctx, idxKey)
	if err != nil {
		return nil, fmt.Errorf("find run %s: %w", domain.RunKey(runType, dockerID), err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	number, err := strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse run index %s: %w", idxKey, err)
	}
	key := runKey(es.cfg.PathPrefix, jobName, number)
	runResp, err := es.client.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", key, err)
	}
	if len(runResp.Kvs) == 0 {
		return nil, fmt.Errorf("index %s points at missing run %d", idxKey, number)
	}
	run, err := unmarshalRun(runResp.Kvs[0].Value)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateRun allocates the next run number while holding the job lock and
// writes the run, its index entry and the counter in a single transaction.
func (es *EtcdStore) CreateRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	var created domain.Run
	lk := lockKey(es.cfg.PathPrefix, run.JobName)
	err := es.LockTransaction(ctx, []string{lk}, func() error {
		existing, err := es.FindRun(ctx, run.JobName, run.Type, run.DockerID)
		if err != nil {
			return err
		}
		if existing != nil {
			created = *existing
			return nil
		}

		number, err := es.nextNumber(ctx, run.JobName)
		if err != nil {
			return err
		}
		run.Number = number
		value, err := marshalRun(run)
		if err != nil {
			return err
		}
		numStr := strconv.FormatInt(number, 10)
		_, err = es.client.Txn(ctx).
			Then(
				clientv3.OpPut(runKey(es.cfg.PathPrefix, run.JobName, number), value),
				clientv3.OpPut(indexKey(es.cfg.PathPrefix, run.JobName, run.Type, run.DockerID), numStr),
				clientv3.OpPut(counterKey(es.cfg.PathPrefix, run.JobName), numStr),
			).
			Commit()
		if err != nil {
			return fmt.Errorf("store run %s: %w", run.Key(), err)
		}
		created = run
		return nil
	})
	if err != nil {
		return domain.Run{}, err
	}
	return created, nil
}

func (es *EtcdStore) nextNumber(ctx context.Context, jobName string) (int64, error) {
	key := counterKey(es.cfg.PathPrefix, jobName)
	resp, err := es.client.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("get run counter: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return 1, nil
	}
	last, err := strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse run counter %s: %w", key, err)
	}
	return last + 1, nil
}

// ListRuns returns the runs of a job ordered by run number.
func (es *EtcdStore) ListRuns(ctx context.Context, jobName string) ([]domain.Run, error) {
	prefix := runsPrefix(es.cfg.PathPrefix, jobName)
	resp, err := es.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]domain.Run, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		keyStr := string(kv.Key)
		run, err := unmarshalRun(kv.Value)
		if err != nil {
			es.logger.Error().Err(err).Msgf("[etcd_store] Failed to parse run key: %s", keyStr)
			continue
		}
		if run.Number == 0 {
			if n, err := numberFromRunKey(es.cfg.PathPrefix, jobName, keyStr); err == nil {
				run.Number = n
			}
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Number < runs[j].Number })
	return runs, nil
}

// LockTransaction provides a distributed lock using etcd transactions.
// It tries to acquire locks on all keys, runs the function, and finally
// releases all locks.
func (es *EtcdStore) LockTransaction(ctx context.Context, keys []string, fn func() error) error {
	leases := make([]heldLease, 0, len(keys))
	// Locks are released even when ctx has been cancelled.
	rctx := context.WithoutCancel(ctx)
	release := func() {
		for i := len(leases) - 1; i >= 0; i-- {
			l := leases[i]
			if _, err := es.client.Delete(rctx, l.lockKey); err != nil {
				es.logger.Warn().Err(err).Msgf("failed to delete lock key %s", l.lockKey)
			}
			if _, err := es.client.Revoke(rctx, l.lease); err != nil {
				es.logger.Warn().Err(err).Msgf("failed to revoke lease for %s", l.lockKey)
			}
		}
	}

	timeout := seconds(es.cfg.LockTimeout)
	retry := seconds(es.cfg.LockRetryInterval)
	for _, lk := range keys {
		leaseResp, err := es.client.Grant(ctx, int64(es.cfg.LockTTL))
		if err != nil {
			release()
			return fmt.Errorf("failed to create lease: %w", err)
		}
		acquired := false
		start := time.Now()
		for time.Since(start) < timeout {
			txnResp, err := es.client.Txn(ctx).
				If(clientv3.Compare(clientv3.CreateRevision(lk), "=", 0)).
				Then(clientv3.OpPut(lk, es.owner, clientv3.WithLease(leaseResp.ID))).
				Commit()
			if err != nil {
				_, _ = es.client.Revoke(rctx, leaseResp.ID)
				release()
				return err
			}
			if txnResp.Succeeded {
				acquired = true
				leases = append(leases, heldLease{lockKey: lk, lease: leaseResp.ID})
				break
			}
			select {
			case <-ctx.Done():
				_, _ = es.client.Revoke(rctx, leaseResp.ID)
				release()
				return ctx.Err()
			case <-time.After(retry):
			}
		}
		if !acquired {
			_, _ = es.client.Revoke(rctx, leaseResp.ID)
			release()
			return fmt.Errorf("failed to acquire lock on %s", lk)
		}
	}

	err := fn()
	release()
	return err
}

func (es *EtcdStore) Close() error {
	return es.client.Close()
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

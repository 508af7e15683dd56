package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wispdb/wisp/core"
	"github.com/wispdb/wisp/driver/memory"
)

func newVenueMapper(t *testing.T, seed ...map[string]any) (*core.Mapper, *memory.Executor) {
	t.Helper()
	exec := memory.NewExecutor()
	exec.Seed("venues", seed...)
	return core.New(exec), exec
}

func identityHook(kind core.Kind, model core.Tag, record core.Record) (core.Record, error) {
	return record, nil
}

func TestInsertReturnsRecords(t *testing.T) {
	t.Parallel()

	mapper, exec := newVenueMapper(t)
	records, err := mapper.Insert(context.Background(), "venue", []map[string]any{
		{"name": "Tempest", "category": "bar"},
		{"name": "Ho Chi Minh", "category": "bakery"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for i, record := range records {
		if !record.Pristine() {
			t.Fatalf("record %d should come back pristine", i)
		}
		id, ok := record.Get("id")
		if !ok || id != int64(i+1) {
			t.Fatalf("record %d id = %v, want %d", i, id, i+1)
		}
	}
	name, _ := records[0].Get("name")
	if name != "Tempest" {
		t.Fatalf("first record name = %v, want Tempest", name)
	}
	if exec.MutationCount() != 1 {
		t.Fatalf("mutations = %d, want a single insert statement", exec.MutationCount())
	}
}

func TestSelectFiltersAndOrders(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest", "category": "bar"},
		map[string]any{"id": int64(2), "name": "Ho Chi Minh", "category": "bakery"},
		map[string]any{"id": int64(3), "name": "Ground Control", "category": "bar"},
	)

	records, err := mapper.Select(context.Background(), "venue",
		core.NewQuery().Filter(core.Field("category").Eq("bar")).OrderBy("name", 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	first, _ := records[0].Get("name")
	second, _ := records[1].Get("name")
	if first != "Ground Control" || second != "Tempest" {
		t.Fatalf("order = [%v, %v], want [Ground Control, Tempest]", first, second)
	}
}

func TestSelectOne(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest", "category": "bar"},
	)

	record, ok, err := mapper.SelectOne(context.Background(), "venue", "name", "Tempest")
	if err != nil || !ok {
		t.Fatalf("SelectOne = %v, %v", ok, err)
	}
	if id, _ := record.Get("id"); id != int64(1) {
		t.Fatalf("id = %v, want 1", id)
	}

	_, ok, err = mapper.SelectOne(context.Background(), "venue", "name", "Nowhere")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("no row should match")
	}
}

func TestSelectKeysProjectsPrimaryKey(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest", "category": "bar"},
		map[string]any{"id": int64(2), "name": "Ho Chi Minh", "category": "bakery"},
	)

	keys, err := mapper.SelectKeys(context.Background(), "venue")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	for i, key := range keys {
		if key.Len() != 1 {
			t.Fatalf("key %d = %v, want the id column only", i, key.Map())
		}
		if id, _ := key.Get("id"); id != int64(i+1) {
			t.Fatalf("key %d id = %v", i, id)
		}
	}
}

func TestCount(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "category": "bar"},
		map[string]any{"id": int64(2), "category": "bakery"},
		map[string]any{"id": int64(3), "category": "bar"},
	)

	count, err := mapper.Count(context.Background(), "venue", "category", "bar")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestUpdateCountsAffectedRows(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest", "category": "bar"},
		map[string]any{"id": int64(2), "name": "Ho Chi Minh", "category": "bakery"},
	)

	count, err := mapper.Update(context.Background(), "venue",
		core.Changes{"category": "pub"}, "name", "Tempest")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	record, ok, err := mapper.SelectOne(context.Background(), "venue", "id", int64(1))
	if err != nil || !ok {
		t.Fatalf("SelectOne = %v, %v", ok, err)
	}
	if category, _ := record.Get("category"); category != "pub" {
		t.Fatalf("category = %v, want pub", category)
	}
}

func TestUpdateRecordsRefetchesRows(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest", "category": "bar"},
		map[string]any{"id": int64(2), "name": "Ground Control", "category": "bar"},
	)

	seq, err := mapper.UpdateSeq(context.Background(), "venue",
		core.Changes{"category": "pub"}, "category", "bar")
	if err != nil {
		t.Fatal(err)
	}
	records, err := core.CollectSeq(seq)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for i, record := range records {
		if !record.Pristine() {
			t.Fatalf("record %d should be pristine after refetch", i)
		}
		if category, _ := record.Get("category"); category != "pub" {
			t.Fatalf("record %d category = %v, want pub", i, category)
		}
	}
}

func TestSaveAppliesOnlyTheDiff(t *testing.T) {
	t.Parallel()

	mapper, exec := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest", "category": "bar"},
	)

	record, ok, err := mapper.SelectOne(context.Background(), "venue", "id", int64(1))
	if err != nil || !ok {
		t.Fatalf("SelectOne = %v, %v", ok, err)
	}
	exec.ResetCounters()

	saved, err := mapper.Save(context.Background(), record.Set("category", "pub"))
	if err != nil {
		t.Fatal(err)
	}
	if !saved.Pristine() {
		t.Fatal("saved record should be pristine")
	}
	if category, _ := saved.Get("category"); category != "pub" {
		t.Fatalf("saved category = %v, want pub", category)
	}
	if exec.MutationCount() != 1 {
		t.Fatalf("mutations = %d, want 1", exec.MutationCount())
	}

	after, _, err := mapper.SelectOne(context.Background(), "venue", "id", int64(1))
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := after.Get("name"); name != "Tempest" {
		t.Fatalf("untouched column changed: name = %v", name)
	}
}

func TestSavePristineIsNoOp(t *testing.T) {
	t.Parallel()

	mapper, exec := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest"},
	)
	record, _, err := mapper.SelectOne(context.Background(), "venue", "id", int64(1))
	if err != nil {
		t.Fatal(err)
	}
	exec.ResetCounters()

	if _, err := mapper.Save(context.Background(), record); err != nil {
		t.Fatal(err)
	}
	if exec.MutationCount() != 0 {
		t.Fatalf("mutations = %d, want 0 for a pristine record", exec.MutationCount())
	}
}

func TestDeleteReturnsRemovedKeys(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "category": "bar"},
		map[string]any{"id": int64(2), "category": "bakery"},
		map[string]any{"id": int64(3), "category": "bar"},
	)

	seq, err := mapper.DeleteKeysSeq(context.Background(), "venue", "category", "bar")
	if err != nil {
		t.Fatal(err)
	}
	keys, err := core.CollectSeq(seq)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}

	remaining, err := mapper.Count(context.Background(), "venue")
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
}

func TestSelectSeqExecutesNothingBeforeFirstPull(t *testing.T) {
	t.Parallel()

	mapper, exec := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest"},
	)

	seq, err := mapper.SelectSeq(context.Background(), "venue")
	if err != nil {
		t.Fatal(err)
	}
	if exec.QueryCount() != 0 {
		t.Fatalf("queries = %d before the first pull, want 0", exec.QueryCount())
	}

	if _, ok, err := seq.Next(); err != nil || !ok {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if exec.QueryCount() != 1 {
		t.Fatalf("queries = %d after the first pull, want 1", exec.QueryCount())
	}
}

func TestInsertKeysWithoutHookIssuesNoQuery(t *testing.T) {
	t.Parallel()

	mapper, exec := newVenueMapper(t)
	keys, err := mapper.InsertKeys(context.Background(), "venue", []map[string]any{
		{"name": "Tempest"},
		{"name": "Ground Control"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if exec.QueryCount() != 0 {
		t.Fatalf("queries = %d, want 0 when no hook is registered", exec.QueryCount())
	}
	if exec.MutationCount() != 1 {
		t.Fatalf("mutations = %d, want 1", exec.MutationCount())
	}
}

func TestIdentityHookIsTransparent(t *testing.T) {
	t.Parallel()

	seed := []map[string]any{
		{"id": int64(1), "name": "Tempest", "category": "bar"},
		{"id": int64(2), "name": "Ho Chi Minh", "category": "bakery"},
	}
	plain, _ := newVenueMapper(t, seed...)
	hooked, _ := newVenueMapper(t, seed...)
	hooked.RegisterAfterHook(nil, "venue", identityHook)

	plainRecords, err := plain.Select(context.Background(), "venue", core.NewQuery().OrderBy("id", 1))
	if err != nil {
		t.Fatal(err)
	}
	hookedRecords, err := hooked.Select(context.Background(), "venue", core.NewQuery().OrderBy("id", 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(plainRecords) != len(hookedRecords) {
		t.Fatalf("lengths differ: %d vs %d", len(plainRecords), len(hookedRecords))
	}
	for i := range plainRecords {
		if !plainRecords[i].Fields().Equal(hookedRecords[i].Fields()) {
			t.Fatalf("record %d differs: %v vs %v",
				i, plainRecords[i].Fields().Map(), hookedRecords[i].Fields().Map())
		}
	}

	plainCount, err := plain.Count(context.Background(), "venue")
	if err != nil {
		t.Fatal(err)
	}
	hookedCount, err := hooked.Count(context.Background(), "venue")
	if err != nil {
		t.Fatal(err)
	}
	if plainCount != hookedCount {
		t.Fatalf("counts differ: %d vs %d", plainCount, hookedCount)
	}
}

func TestHookRunsExactlyOncePerRecord(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t)
	invocations := 0
	mapper.RegisterAfterHook(nil, "venue", func(kind core.Kind, model core.Tag, record core.Record) (core.Record, error) {
		invocations++
		return record.Set("audited", true), nil
	})

	records, err := mapper.Insert(context.Background(), "venue", []map[string]any{
		{"name": "Tempest"},
		{"name": "Ground Control"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if invocations != 2 {
		t.Fatalf("hook ran %d times, want exactly once per record", invocations)
	}
	for i, record := range records {
		if audited, _ := record.Get("audited"); audited != true {
			t.Fatalf("record %d missing the hook's edit", i)
		}
	}
}

func TestKeysHookRehydratesInKeyOrder(t *testing.T) {
	t.Parallel()

	// Storage order deliberately disagrees with the requested sort, so a
	// rehydration that leaks store order would surface as [5, 4].
	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(5), "name": "Tempest"},
		map[string]any{"id": int64(4), "name": "Ground Control"},
	)
	mapper.RegisterAfterHook([]core.Kind{core.KindKeys}, "venue", identityHook)

	keys, err := mapper.SelectKeys(context.Background(), "venue", core.NewQuery().OrderBy("id", 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	first, _ := keys[0].Get("id")
	second, _ := keys[1].Get("id")
	if first != int64(4) || second != int64(5) {
		t.Fatalf("key order = [%v, %v], want [4, 5]", first, second)
	}
}

func TestCountWithHookStillSumsToRowCount(t *testing.T) {
	t.Parallel()

	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "category": "bar"},
		map[string]any{"id": int64(2), "category": "bar"},
		map[string]any{"id": int64(3), "category": "bakery"},
	)
	seen := 0
	mapper.RegisterAfterHook([]core.Kind{core.KindCount}, "venue", func(kind core.Kind, model core.Tag, record core.Record) (core.Record, error) {
		seen++
		return record, nil
	})

	count, err := mapper.Count(context.Background(), "venue", "category", "bar")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if seen != 2 {
		t.Fatalf("hook observed %d records, want 2", seen)
	}
}

func TestEmptyInsertShortCircuits(t *testing.T) {
	t.Parallel()

	mapper, exec := newVenueMapper(t)
	mapper.RegisterAfterHook(nil, "venue", identityHook)

	count, err := mapper.InsertCount(context.Background(), "venue", nil)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if exec.MutationCount() != 0 || exec.QueryCount() != 0 {
		t.Fatalf("statements = %d/%d, want none for an empty insert",
			exec.QueryCount(), exec.MutationCount())
	}
}

func TestHookErrorPropagatesWithContext(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	mapper, _ := newVenueMapper(t,
		map[string]any{"id": int64(1), "name": "Tempest"},
	)
	mapper.RegisterAfterHook([]core.Kind{core.KindRecords}, "venue", func(kind core.Kind, model core.Tag, record core.Record) (core.Record, error) {
		return core.Record{}, boom
	})

	_, err := mapper.Select(context.Background(), "venue")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want to wrap boom", err)
	}
	var hookErr *core.HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("err = %v, want *HookError", err)
	}
	if hookErr.Model != "venue" || hookErr.Kind != core.KindRecords {
		t.Fatalf("hook error context = %s/%s", hookErr.Kind, hookErr.Model)
	}
	if id, _ := hookErr.Record.Get("id"); id != int64(1) {
		t.Fatalf("hook error record = %v", hookErr.Record.Fields().Map())
	}
}

func TestInsertEndToEnd(t *testing.T) {
	t.Parallel()

	rows := []map[string]any{
		{"name": "Tempest", "category": "bar"},
		{"name": "Ho Chi Minh", "category": "bakery"},
	}

	countMapper, _ := newVenueMapper(t)
	count, err := countMapper.InsertCount(context.Background(), "venue", rows)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	keysMapper, _ := newVenueMapper(t)
	keys, err := keysMapper.InsertKeys(context.Background(), "venue", rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	for i, key := range keys {
		if id, _ := key.Get("id"); id != int64(i+1) {
			t.Fatalf("key %d = %v, want insertion order", i, key.Map())
		}
	}

	fetched, err := keysMapper.Select(context.Background(), "venue",
		core.Field("id").In(int64(1), int64(2)))
	if err != nil {
		t.Fatal(err)
	}
	if len(fetched) != 2 {
		t.Fatalf("got %d records, want 2", len(fetched))
	}
	for i, record := range fetched {
		if !record.Pristine() {
			t.Fatalf("fetched record %d should have original == current", i)
		}
	}
}

func TestTraceObservesRefetch(t *testing.T) {
	t.Parallel()

	exec := memory.NewExecutor()
	exec.Seed("venues", map[string]any{"id": int64(1), "name": "Tempest"})

	var stages []string
	mapper := core.New(exec, core.WithTrace(func(event core.TraceEvent) {
		stages = append(stages, event.Stage)
	}))
	mapper.RegisterAfterHook([]core.Kind{core.KindKeys}, "venue", identityHook)

	if _, err := mapper.SelectKeys(context.Background(), "venue"); err != nil {
		t.Fatal(err)
	}
	refetched := false
	for _, stage := range stages {
		if stage == "refetch" {
			refetched = true
		}
	}
	if !refetched {
		t.Fatalf("stages = %v, want a refetch event", stages)
	}
}

func TestRunTransaction(t *testing.T) {
	t.Parallel()

	mapper, exec := newVenueMapper(t)
	err := core.RunTransaction(context.Background(), exec, func(txCtx context.Context) error {
		if _, err := mapper.InsertCount(txCtx, "venue", []map[string]any{{"name": "Tempest"}}); err != nil {
			return err
		}
		_, err := mapper.InsertCount(txCtx, "venue", []map[string]any{{"name": "Ground Control"}})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	count, err := mapper.Count(context.Background(), "venue")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestInsertEmitsEvent(t *testing.T) {
	t.Parallel()

	received := make(chan core.InsertPayload, 1)
	core.On(core.EventInsert, func(payload any) {
		if p, ok := payload.(core.InsertPayload); ok && p.Model == "event_venue" {
			select {
			case received <- p:
			default:
			}
		}
	})

	exec := memory.NewExecutor()
	mapper := core.New(exec)
	if _, err := mapper.InsertCount(context.Background(), "event_venue", []map[string]any{{"name": "Tempest"}}); err != nil {
		t.Fatal(err)
	}

	select {
	case payload := <-received:
		if payload.Count != 1 {
			t.Fatalf("payload count = %d, want 1", payload.Count)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("insert event never arrived")
	}
}

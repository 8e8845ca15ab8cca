package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
)

// dlqEntry — сообщение, которое outbox worker кладёт в DLQ после исчерпания retry.
type dlqEntry struct {
	OutboxID     string            `json:"outbox_id"`
	RecordKind   domain.RecordKind `json:"record_kind"`
	RecordKey    string            `json:"record_key"`
	EventType    domain.ChangeType `json:"event_type"`
	Payload      json.RawMessage   `json:"payload"`
	PublishError string            `json:"publish_error"`
}

// tally — итог прогона.
type tally struct {
	Scanned  int
	Replayed int
	Filtered int
	Skipped  int
}

func (t *tally) add(other tally) {
	t.Scanned += other.Scanned
	t.Replayed += other.Replayed
	t.Filtered += other.Filtered
	t.Skipped += other.Skipped
}

type replayer struct {
	cfg    config
	src    source
	pub    publisher
	logger *log.Entry
}

// run обходит партиции DLQ по возрастанию номера, пока не исчерпан лимит.
func (r *replayer) run(ctx context.Context) (tally, error) {
	var total tally
	if r.cfg.execute && r.pub == nil {
		return total, fmt.Errorf("execute mode needs a producer")
	}

	partitions, err := r.src.Partitions(r.cfg.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("list partitions of %s: %w", r.cfg.sourceTopic, err)
	}
	slices.Sort(partitions)

	for _, partition := range partitions {
		budget := r.cfg.limit - total.Scanned
		if budget <= 0 {
			break
		}
		got, err := r.drain(ctx, partition, budget)
		total.add(got)
		if err != nil {
			return total, err
		}
	}

	mode := "dry-run"
	if r.cfg.execute {
		mode = "execute"
	}
	r.logger.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  total.Scanned,
		"replayed": total.Replayed,
		"filtered": total.Filtered,
		"skipped":  total.Skipped,
	}).Info("dlq replay finished")
	return total, nil
}

// window возвращает диапазон [from, to) смещений партиции, который стоит прочитать.
func (r *replayer) window(partition int32, budget int) (from, to int64, err error) {
	oldest, err := r.src.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return 0, 0, fmt.Errorf("oldest offset of partition %d: %w", partition, err)
	}
	newest, err := r.src.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return 0, 0, fmt.Errorf("newest offset of partition %d: %w", partition, err)
	}
	from = oldest
	if r.cfg.fromNewest {
		from = max(oldest, newest-int64(budget))
	}
	return from, newest, nil
}

// drain читает одну партицию до конца окна, лимита или паузы длиннее idle-timeout.
func (r *replayer) drain(ctx context.Context, partition int32, budget int) (tally, error) {
	var got tally

	from, to, err := r.window(partition, budget)
	if err != nil || from >= to {
		return got, err
	}

	stream, err := r.src.ConsumePartition(r.cfg.sourceTopic, partition, from)
	if err != nil {
		return got, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = stream.Close() }()

	idle := time.NewTimer(r.cfg.idleTimeout)
	defer idle.Stop()

	errs := stream.Errors()
	for got.Scanned < budget {
		select {
		case <-ctx.Done():
			return got, ctx.Err()
		case <-idle.C:
			return got, nil
		case cerr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if cerr != nil {
				return got, fmt.Errorf("partition %d: %w", partition, cerr)
			}
		case msg, ok := <-stream.Messages():
			if !ok || msg == nil || msg.Offset >= to {
				return got, nil
			}
			idle.Reset(r.cfg.idleTimeout)

			got.Scanned++
			if err := r.handle(msg, &got); err != nil {
				return got, err
			}
			if msg.Offset+1 >= to {
				return got, nil
			}
		}
	}
	return got, nil
}

// handle разбирает одно сообщение DLQ и публикует событие или отмечает его пропуск.
func (r *replayer) handle(msg *sarama.ConsumerMessage, got *tally) error {
	entry := r.logger.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	event, ok, err := restoreEvent(msg.Value)
	switch {
	case err != nil:
		entry.WithError(err).Warn("skip malformed dlq entry")
		got.Skipped++
		return nil
	case !ok:
		got.Skipped++
		return nil
	case !r.cfg.wants(event.Kind):
		got.Filtered++
		return nil
	}

	entry = entry.WithFields(log.Fields{"kind": event.Kind, "key": event.Key, "type": event.Type})
	if !r.cfg.execute {
		entry.Info("dlq replay candidate")
		got.Replayed++
		return nil
	}
	if err := r.pub.PublishChange(r.cfg.targetTopic, event); err != nil {
		return fmt.Errorf("replay %s %s: %w", event.Kind, event.Key, err)
	}
	entry.Debug("event replayed")
	got.Replayed++
	return nil
}

// restoreEvent восстанавливает событие изменения из записи DLQ. Поля записи
// имеют приоритет над полями вложенного события. Сообщения чужого формата
// возвращают ok=false без ошибки.
func restoreEvent(raw []byte) (domain.ChangeEvent, bool, error) {
	var entry dlqEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.ChangeEvent{}, false, nil
	}
	if entry.OutboxID == "" && entry.RecordKey == "" {
		return domain.ChangeEvent{}, false, nil
	}
	if len(entry.Payload) == 0 {
		return domain.ChangeEvent{}, false, fmt.Errorf("dlq entry %s has no event payload", entry.OutboxID)
	}

	var event domain.ChangeEvent
	if err := json.Unmarshal(entry.Payload, &event); err != nil {
		return domain.ChangeEvent{}, false, fmt.Errorf("decode change event: %w", err)
	}
	if entry.OutboxID != "" {
		event.ID = entry.OutboxID
	}
	if entry.RecordKind != "" {
		event.Kind = entry.RecordKind
	}
	if entry.RecordKey != "" {
		event.Key = entry.RecordKey
	}
	if entry.EventType != "" {
		event.Type = entry.EventType
	}
	if event.Kind == "" || event.Key == "" || event.Type == "" {
		return domain.ChangeEvent{}, false, fmt.Errorf("dlq entry %s does not identify a record change", event.ID)
	}
	return event, true, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/danmuck/notesctl/internal/sink"
	"github.com/danmuck/notesctl/internal/testutil/testlog"
)

func TestSinkPublishesKeyedJSON(t *testing.T) {
	testlog.Start(t)
	producer := mocks.NewSyncProducer(t, NewConfig())
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "notes.export" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil || string(key) != "12" {
			return errors.New("wrong key " + string(key))
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var rec sink.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if rec.Title != "hello" || rec.Status != sink.StatusOK {
			return errors.New("unexpected payload " + string(raw))
		}
		return nil
	})

	s, err := New(producer, "notes.export")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Write(context.Background(), sink.Record{ID: 12, Title: "hello", Status: sink.StatusOK}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSinkReportsSendFailure(t *testing.T) {
	testlog.Start(t)
	producer := mocks.NewSyncProducer(t, NewConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	s, err := New(producer, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()
	if err := s.Write(context.Background(), sink.Record{ID: 1}); !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected ErrOutOfBrokers, got %v", err)
	}
}

func TestDialRequiresBrokers(t *testing.T) {
	testlog.Start(t)
	if _, err := Dial(nil, "notes"); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

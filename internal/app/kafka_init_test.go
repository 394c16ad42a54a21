package app

import (
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestParseBrokerList(t *testing.T) {
	cases := []struct {
		name    string
		brokers string
		want    int
	}{
		{name: "empty", brokers: "", want: 0},
		{name: "single", brokers: "localhost:9092", want: 1},
		{name: "spaces and empties", brokers: " kafka-1:9092, ,kafka-2:9092 ,", want: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseBrokerList(tc.brokers)
			if len(got) != tc.want {
				t.Fatalf("expected %d brokers, got %v", tc.want, got)
			}
			for _, addr := range got {
				if addr == "" || addr != strings.TrimSpace(addr) {
					t.Fatalf("broker address not trimmed: %q", addr)
				}
			}
		})
	}
}

func TestInitKafkaProducer_NoBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka-init")

	for _, brokers := range []string{"", " , ,"} {
		producer, err := initKafkaProducer(brokers, logger)
		if err != nil {
			t.Fatalf("brokers %q must not be an error: %v", brokers, err)
		}
		if producer != nil {
			t.Fatalf("expected nil producer for brokers %q", brokers)
		}
	}
}

func TestInitKafkaProducer_UnreachableBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka-init")

	producer, err := initKafkaProducer("localhost:1", logger)
	if err == nil {
		t.Skip("unexpectedly connected to localhost:1, skipping")
	}
	if producer != nil {
		t.Fatal("expected nil producer on connection failure")
	}
}

func TestCloseKafka_NilProducer(t *testing.T) {
	// Не должно паниковать.
	closeKafka(nil, log.WithField("test", "kafka-init"))
}

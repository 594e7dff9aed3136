package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

const LoanEventsTopic = "loan-events"

type LoanAction string

const (
	LoanBorrowed LoanAction = "BORROWED"
	LoanReturned LoanAction = "RETURNED"
)

// LoanEvent is published on every successful borrow and return.
type LoanEvent struct {
	LoanUid  string     `json:"loanUid"`
	PatronID string     `json:"patronId"`
	BookID   int        `json:"bookId"`
	Action   LoanAction `json:"action"`
	At       time.Time  `json:"at"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

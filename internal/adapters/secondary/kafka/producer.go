package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/IBM/sarama"
	"github.com/admin/tg-bots/premium-club/internal/domain"
)

// Producer публикует события о принятых платежах в аудит-топик
type Producer struct {
	producer sarama.SyncProducer
	cfg      *Config
	log      *slog.Logger
}

// NewProducer создаёт новый Kafka producer
func NewProducer(cfg *Config, log *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	// Настройка безопасности (если указано)
	if cfg.SecurityProtocol == "SASL_SSL" || cfg.SecurityProtocol == "SASL_PLAINTEXT" {
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		if cfg.SASLMechanism == "SCRAM-SHA-256" {
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		}
		config.Net.SASL.User = cfg.SASLUsername
		config.Net.SASL.Password = cfg.SASLPassword
		// TLS только для SASL_SSL
		if cfg.SecurityProtocol == "SASL_SSL" {
			config.Net.TLS.Enable = true
		}
	}

	producer, err := sarama.NewSyncProducer(cfg.GetBrokers(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka producer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return &Producer{
		producer: producer,
		cfg:      cfg,
		log:      log,
	}, nil
}

// paymentAcceptedEvent формат сообщения в аудит-топике
type paymentAcceptedEvent struct {
	LedgerID           string  `json:"ledger_id"`
	Provider           string  `json:"provider"`
	ProviderTxID       string  `json:"provider_tx_id"`
	TelegramID         *int64  `json:"telegram_id,omitempty"`
	Username           *string `json:"username,omitempty"`
	Tariff             string  `json:"tariff"`
	DaysAdded          int     `json:"days_added"`
	OriginalAmount     string  `json:"original_amount"`
	OriginalCurrency   string  `json:"original_currency"`
	NormalizedAmount   string  `json:"normalized_amount_usd"`
	NeedsReconcile     bool    `json:"needs_reconciliation"`
	SubscriptionExpiry *string `json:"subscription_expires_at,omitempty"`
	AcceptedAt         string  `json:"accepted_at"`
}

// PublishPaymentAccepted отправляет событие о принятом платеже
// Ключ сообщения — (provider, provider_tx_id), чтобы повторы писались в ту же партицию
func (p *Producer) PublishPaymentAccepted(ctx context.Context, entry *domain.LedgerEntry, sub *domain.Subscription) error {
	event := paymentAcceptedEvent{
		LedgerID:         entry.ID.String(),
		Provider:         string(entry.Provider),
		ProviderTxID:     entry.ProviderTransactionID,
		TelegramID:       entry.TelegramID,
		Username:         entry.Username,
		Tariff:           string(entry.Tariff),
		DaysAdded:        entry.DaysAdded,
		OriginalAmount:   entry.OriginalAmount.String(),
		OriginalCurrency: string(entry.OriginalCurrency),
		NormalizedAmount: entry.NormalizedAmount.String(),
		NeedsReconcile:   entry.NeedsReconciliation,
		AcceptedAt:       entry.CreatedAt.Format(time.RFC3339),
	}
	if sub != nil {
		expiry := sub.ExpiresAt.Format(time.RFC3339)
		event.SubscriptionExpiry = &expiry
	}

	valueBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}

	key := fmt.Sprintf("%s:%s", entry.Provider, entry.ProviderTransactionID)

	msg := &sarama.ProducerMessage{
		Topic: p.cfg.Topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte("payment_accepted"),
			},
			{
				Key:   []byte("provider"),
				Value: []byte(string(entry.Provider)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Debug("kafka send failed",
			"error", err,
			"topic", p.cfg.Topic,
			"key", key,
		)
		return fmt.Errorf("kafka send failed [topic=%s, key=%s]: %w",
			p.cfg.Topic, key, err)
	}

	p.log.Debug("payment event sent to kafka",
		"topic", p.cfg.Topic,
		"partition", partition,
		"offset", offset,
		"key", key,
	)

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	p.log.Info("kafka producer closed")
	return nil
}

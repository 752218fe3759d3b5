// Package queue also contains the background consumer that listens to
// the published event queues and writes structured logs to
// logs/events.log.  It stands in for downstream consumers during local
// development; real consumers must dedupe by event identity since the
// outbox relay delivers at-least-once.
package queue

import (
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/tickethub/event-seat-reservation/internal/model"
)

// consumedQueues lists the event queues drained by the log consumer.
var consumedQueues = []string{
    model.EventReservationCreated,
    model.EventReservationExpired,
    model.EventSeatReleased,
    model.EventPaymentConfirmed,
}

// StartEventConsumer connects to RabbitMQ, declares the event queues
// (durable), and starts consuming messages.  Each message is appended to
// logs/events.log as a single line.  The function runs a reconnect loop
// with doubling backoff and keeps running; processing errors are logged
// and the offending message rejected so the server continues operating.
func StartEventConsumer() error {
    url := BrokerURL()

    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn); err != nil {
            log.Printf("event-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
            continue
        }
    }
}

func consumeLoop(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("event-consumer: set QoS failed: %v", err)
    }

    deliveries := make(chan amqp.Delivery)
    var wg sync.WaitGroup
    for _, name := range consumedQueues {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        wg.Add(1)
        go func(msgs <-chan amqp.Delivery) {
            defer wg.Done()
            for d := range msgs {
                deliveries <- d
            }
        }(msgs)
    }
    // When the channel dies every per-queue stream closes; closing
    // deliveries then lets the loop below return and reconnect.
    go func() {
        wg.Wait()
        close(deliveries)
    }()

    for d := range deliveries {
        if err := handleMessage(d.RoutingKey, d.Body); err != nil {
            log.Printf("event-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleMessage(eventName string, body []byte) error {
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "events.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] %s %s\n", time.Now().UTC().Format(time.RFC3339), eventName, body)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

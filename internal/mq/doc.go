// Package mq публикует события запуска в RabbitMQ и подписывается на них.
//
// Структура:
//   - connection.go — соединение с переподключением
//   - topology.go   — exchange sweep.events (topic) и очередь sweep.events.log
//   - publisher.go  — EventPublisher (orchestrator.Notifier)
//   - consumer.go   — Subscriber для команды "sweep events"
//
// Routing key события — его тип: run.started, step.launched, worker.crashed, ...
// Брокер необязателен: события информационные, состояние запуска
// определяется только result marker'ами на диске.
package mq

// Package rabbitmq publishes encoded domain events to a RabbitMQ topic
// exchange over a single shared connection.
package rabbitmq

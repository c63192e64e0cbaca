// Package eventsink mirrors committed audit events onto a Kafka topic so
// downstream systems can follow request triage without polling the database.
// The database remains the source of truth; publishing is best effort.
package eventsink

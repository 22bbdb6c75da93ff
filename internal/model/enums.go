package model

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type MessageAuthor string

const (
	AuthorCustomer   MessageAuthor = "customer"
	AuthorHuman      MessageAuthor = "human"
	AuthorAutomation MessageAuthor = "automation"
)

type MessageKind string

const (
	KindText     MessageKind = "text"
	KindAudio    MessageKind = "audio"
	KindImage    MessageKind = "image"
	KindDocument MessageKind = "document"
)

type SessionStatus string

const (
	SessionInactive  SessionStatus = "inactive"
	SessionActive    SessionStatus = "active"
	SessionHandedOff SessionStatus = "handed_off"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type InstanceStatus string

const (
	InstanceConnected    InstanceStatus = "connected"
	InstanceDisconnected InstanceStatus = "disconnected"
)

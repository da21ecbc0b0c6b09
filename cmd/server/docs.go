// Package main TeamTask Server API
//
//	@title						TeamTask Server API
//	@version					1.0
//	@description				Team task management backend with Google Calendar sync.
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Auth
//	@tag.description			Registration, login and sessions
//
//	@tag.name					Users
//	@tag.description			Profile
//
//	@tag.name					Teams
//	@tag.description			Teams, invites and membership
//
//	@tag.name					Tasks
//	@tag.description			Team tasks and calendar sync
//
//	@tag.name					Calendar
//	@tag.description			Google Calendar connection
//
//	@tag.name					Notifications
//	@tag.description			Live notification stream
package main

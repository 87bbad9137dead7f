// Package api provides the HTTP server for the blog backend.
//
//	@title						Blog API
//	@version					1.0
//	@description				REST backend for a blog: email-confirmed registration, JWT login, articles, tags, comments and feedback.
//	@description
//	@description				Write operations require a bearer token obtained from POST /users/login.
//
//	@license.name				MIT
//
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the JWT.
package api

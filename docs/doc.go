// Package docs provides generated OpenAPI documentation.
//
// Doodlebook API
//
//	@title			Doodlebook API
//	@version		1.0
//	@description	Turn a child's drawing into an illustrated picture book and movie, then read it page by page.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/doodlebook
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/doodlebook/serve.go -o ./swagger --parseDependency --parseInternal

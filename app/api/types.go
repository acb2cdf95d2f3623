package api

import (
	"net/http"

	"github.com/OmarCodes2/Slop-Block/app/database"
	"github.com/OmarCodes2/Slop-Block/app/engine"
	"github.com/OmarCodes2/Slop-Block/app/feed"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, posts []feed.ExportPost) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type ParserInterface interface {
	Run(data []byte) (*feed.Metadata, []feed.Item, error)
}

var _ ParserInterface = (*feed.Parser)(nil)

type Handler struct {
	sessions     *SessionManager
	settingsRepo database.SettingsRepository
	parser       ParserInterface
	generator    GeneratorInterface
	httpClient   *http.Client
}

type documentRequest struct {
	URL  string `json:"url" binding:"required"`
	HTML string `json:"html" binding:"required"`
}

type mutationsRequest struct {
	Ops []engine.Op `json:"ops" binding:"required"`
}

type navigateRequest struct {
	URL string `json:"url" binding:"required"`
}

type revealRequest struct {
	Key string `json:"key" binding:"required"`
}

type importRequest struct {
	URL string `json:"url"`
}

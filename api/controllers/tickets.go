package controllers

import (
	"net/http"

	"github.com/mediayaseer-arch/questpark-backend/api/responses"
	"github.com/mediayaseer-arch/questpark-backend/internal/tickets"
)

// TicketCatalog returns the sellable ticket products. The catalog is fixed at
// build time, so the handler needs no service behind it.
func TicketCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, tickets.Catalog)
	}
}

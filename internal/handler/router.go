package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"facility-inspect/internal/middleware"
	"facility-inspect/internal/service"
	"facility-inspect/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Users       *service.UserService
	Inspections *service.InspectionService
	Records     *service.RecordService
	Files       *service.FileStore
	Sessions    *session.Store
	JWTSecret   []byte
	TokenTTL    time.Duration
	// Static serves the web client for unmatched paths when set.
	Static http.FileSystem
}

func NewRouter(d Deps) *gin.Engine {
	ctl := session.NewController(d.Sessions, d.Inspections)

	authH := NewAuthHandler(d.Users, d.Sessions, d.JWTSecret, d.TokenTTL)
	sessH := NewSessionHandler(d.Sessions, ctl, d.Records)
	checkH := NewChecklistHandler()
	inspH := NewInspectionHandler(d.Inspections, d.Records, d.Files, d.Sessions, ctl)
	filesH := NewFilesHandler(d.Files)
	adminH := NewAdminHandler(d.Users, d.Sessions)
	lookup := accountLookup(d.Users)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-New-Token", "Content-Disposition"},
		AllowCredentials: true,
	}))

	r.POST("/api/login", authH.Login)
	api := r.Group("/api", middleware.JWTAuth(d.JWTSecret, d.TokenTTL, lookup))
	api.POST("/logout", authH.Logout)

	api.GET("/session", sessH.Get)
	api.POST("/session/transition", sessH.Transition)
	api.POST("/session/new", sessH.New)
	api.POST("/session/edit/:id", sessH.Edit)
	api.POST("/session/search", sessH.Search)
	api.PUT("/session/form", sessH.UpdateForm)
	api.POST("/session/submit", sessH.Submit)

	api.GET("/checklist", checkH.Overview)
	api.GET("/checklist/:type", checkH.Categories)

	api.GET("/inspections", inspH.List)
	api.POST("/inspections", inspH.Create)
	api.GET("/inspections/buildings", inspH.Buildings)
	api.GET("/inspections/inspectors", inspH.Inspectors)
	api.GET("/inspections/:id", inspH.Get)
	api.PUT("/inspections/:id", inspH.Replace)
	api.POST("/inspections/:id/summary", inspH.Summary)
	api.GET("/inspections/:id/report.html", inspH.ReportHTML)
	api.GET("/inspections/:id/report.pdf", inspH.ReportPDF)
	api.GET("/stats", inspH.Stats)

	api.GET("/files", filesH.List)
	api.GET("/files/export.csv", filesH.ExportCSV)
	api.GET("/files/export.xlsx", filesH.ExportXLSX)
	api.GET("/files/:name", filesH.Get)

	admin := api.Group("/admin", middleware.RequireAdmin(lookup))
	admin.GET("/users", adminH.List)
	admin.POST("/users", adminH.Create)
	admin.GET("/users/:email", adminH.Get)
	admin.PUT("/users/:email", adminH.Update)
	admin.DELETE("/users/:email", adminH.Delete)

	if d.Static != nil {
		r.NoRoute(gin.WrapH(http.FileServer(d.Static)))
	}
	return r
}

// accountLookup resolves the caller's account from the users table so role
// changes apply to tokens already issued.
func accountLookup(users *service.UserService) middleware.AccountLookup {
	return func(ctx context.Context, email string) (bool, bool, error) {
		u, err := users.Get(ctx, email)
		if errors.Is(err, service.ErrNotFound) {
			return false, false, nil
		}
		if err != nil {
			return false, false, err
		}
		return true, u.IsAdmin, nil
	}
}

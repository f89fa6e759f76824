package routes

import (
	"net/http"

	"github.com/healthsnap/backend/internal/api/handlers"
	"github.com/healthsnap/backend/internal/api/middleware"
	"github.com/healthsnap/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	reportHandler      *handlers.ReportHandler
	doctorHandler      *handlers.DoctorHandler
	appointmentHandler *handlers.AppointmentHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router. doctorHandler and appointmentHandler may
// be nil when no database is configured; their routes are then not
// registered and report generation runs without persistence.
func NewRouter(
	reportHandler *handlers.ReportHandler,
	doctorHandler *handlers.DoctorHandler,
	appointmentHandler *handlers.AppointmentHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		reportHandler:      reportHandler,
		doctorHandler:      doctorHandler,
		appointmentHandler: appointmentHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Report generation endpoints. The literal /api/reports/generate
	// pattern takes precedence over /api/reports/{id}, so "generate" is
	// never treated as a report id.
	r.mux.HandleFunc("POST /api/reports/generate", r.reportHandler.GenerateReport)
	r.mux.HandleFunc("GET /api/reports/generate", r.reportHandler.GetGenerationStatus)
	r.mux.HandleFunc("GET /api/reports", r.reportHandler.ListReports)
	r.mux.HandleFunc("GET /api/reports/{id}", r.reportHandler.GetReport)

	// Doctor catalog endpoints
	if r.doctorHandler != nil {
		r.mux.HandleFunc("GET /api/doctors", r.doctorHandler.ListDoctors)
		r.mux.HandleFunc("GET /api/doctors/{id}", r.doctorHandler.GetDoctor)
		r.mux.HandleFunc("GET /api/doctors/{id}/slots", r.doctorHandler.ListDoctorSlots)
	}

	// Appointment endpoints
	if r.appointmentHandler != nil {
		r.mux.HandleFunc("POST /api/appointments", r.appointmentHandler.CreateAppointment)
		r.mux.HandleFunc("GET /api/appointments", r.appointmentHandler.ListAppointments)
		r.mux.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
		r.mux.HandleFunc("DELETE /api/appointments/{id}", r.appointmentHandler.CancelAppointment)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}

// Package healthservice exposes sweepd's health as a gRPC
// grpc.health.v1 service, for out-of-process supervisors (orchestrators,
// load balancers) that poll gRPC health checks rather than scraping an
// HTTP admin route. It is the gRPC analogue of the teacher's
// visualiser.Server streaming service — generalized here to the
// standard health-check service rather than a bespoke frame stream,
// since Plot Sink data already has an HTTP live view and the spec
// treats the Queue/Registry as the only state worth reporting over
// gRPC.
package healthservice

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/labstack-instruments/sweepengine/internal/sweepqueue"
)

// ServiceName is the health-checked service name a client should pass
// to the Check/Watch RPCs for this daemon's queue status.
const ServiceName = "sweepengine.Queue"

// Server wraps a grpc.Server and the health.Server whose status it
// updates from a Queue's run state.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// New constructs a Server reporting NOT_SERVING until the first
// SyncFrom call reports a non-error queue state.
func New() *Server {
	h := health.NewServer()
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h)

	return &Server{grpcServer: gs, health: h}
}

// SyncFrom updates the reported serving status from a Queue's current
// state: SERVING unless the queue has entered StateError.
func (s *Server) SyncFrom(q *sweepqueue.Queue) {
	status := healthpb.HealthCheckResponse_SERVING
	if q.State() == sweepqueue.StateError {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Serve blocks accepting gRPC connections on lis until it is closed or
// the server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

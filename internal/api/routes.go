package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.handleGetStatus)
		v1.GET("/health", s.handleGetHealth)
		v1.GET("/positions", s.handleListPositions)
		v1.GET("/positions/:mint", s.handleGetPosition)
		v1.GET("/stats/executor", s.handleExecutorStats)
		v1.GET("/stats/observer", s.handleObserverStats)
		v1.GET("/learning", s.handleGetLearning)
	}
}

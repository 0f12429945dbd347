package httpserver

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware block
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Compress(5))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.HandleRegister)
		r.Post("/login", s.HandleLogin)
		r.Get("/confirm-email/{token}", s.HandleConfirmEmail)
		r.Get("/email-confirmed", s.HandleEmailConfirmed)
		r.Post("/resend-confirmation", s.HandleResendConfirmation)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.HandleListUsers)
		r.Get("/status/{username}", s.HandleGetStatus)
		r.With(s.AuthMiddleware).Get("/me", s.HandleMe)
		r.With(s.AuthMiddleware).Post("/status", s.HandleUpdateStatus)
		r.Get("/{username}", s.HandleGetUser)
	})

	r.Route("/calls", func(r chi.Router) {
		r.With(s.AuthMiddleware).Get("/invitations", s.HandleCallInvitations)
		r.With(s.AuthMiddleware).Post("/group", s.HandleCreateGroupCall)
		r.With(s.AuthMiddleware).Post("/{callID}/join", s.HandleJoinCall)
		r.With(s.AuthMiddleware).Post("/{callID}/accept", s.HandleAcceptCall)
		r.With(s.AuthMiddleware).Post("/{callID}/leave", s.HandleLeaveCall)
		r.With(s.AuthMiddleware).Get("/{callID}/session_key", s.HandleGetSessionKey)
		r.Get("/{callID}/participants", s.HandleListParticipants)
		r.Get("/{callID}", s.HandleGetCallSession)
	})

	r.Route("/signaling", func(r chi.Router) {
		r.With(s.AuthMiddleware).Post("/send", s.HandleSendSignal)
		r.With(s.AuthMiddleware).Get("/{username}", s.HandleInboundOffers)
		r.With(s.AuthMiddleware).Delete("/{callID}", s.HandleDeleteSignaling)
		r.Get("/{callID}/{type}", s.HandlePollSignals)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/send", s.HandleSendMessage)
		r.Get("/with/{username}", s.HandleConversation)
		r.Get("/unread", s.HandleUnreadCount)
		r.Post("/mark_seen", s.HandleMarkSeen)
		r.Post("/attachment", s.HandleUploadAttachment)
		r.Get("/attachment", s.HandleGetAttachmentURL)
	})

	r.Route("/groups", func(r chi.Router) {
		r.Get("/all", s.HandleAllGroups)
		r.Get("/{groupID}/members", s.HandleGroupMembers)

		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware)

			r.Post("/", s.HandleCreateGroup)
			r.Get("/", s.HandleMyGroups)
			r.Get("/invitations", s.HandleGroupInvitations)
			r.Get("/requests", s.HandleJoinRequests)
			r.Post("/{groupID}/invite", s.HandleInviteMember)
			r.Post("/{groupID}/accept", s.HandleAcceptInvite)
			r.Post("/{groupID}/request", s.HandleRequestJoin)
			r.Post("/{groupID}/requests/{userID}/accept", s.HandleAcceptJoinRequest)
			r.Post("/{groupID}/requests/{userID}/reject", s.HandleRejectJoinRequest)
			r.Delete("/{groupID}", s.HandleDeleteGroup)
		})
	})

	return r
}

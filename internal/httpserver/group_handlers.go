package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rx3lixir/kanal/internal/db"
)

// HandleCreateGroup creates a group with the caller as creator and
// first joined member.
func (s *Server) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	req := new(GroupCreateRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "Name is required")
		return
	}

	group := &db.Group{Name: req.Name, CreatorID: user.ID}
	if err := s.groups.CreateGroup(r.Context(), group); err != nil {
		s.handleError(w, err)
		return
	}

	member := &db.GroupMember{
		GroupID: group.ID,
		UserID:  user.ID,
		Status:  db.MemberStatusJoined,
	}
	if err := s.groups.AddMember(r.Context(), member); err != nil {
		s.handleError(w, err)
		return
	}

	s.log.Info("Group created", "group_id", group.ID, "creator", user.Username)

	s.respondJSON(w, http.StatusCreated, group)
}

func (s *Server) HandleMyGroups(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groups, err := s.groups.GetGroupsByMemberStatus(r.Context(), user.ID, db.MemberStatusJoined)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, groups)
}

func (s *Server) HandleAllGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groups.GetAllGroups(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, groups)
}

// HandleInviteMember lets the group creator invite a user. The row
// lands in invited status, waiting on the member's accept.
func (s *Server) HandleInviteMember(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groupID, err := urlParamInt64(r, "groupID")
	if err != nil {
		s.handleError(w, err)
		return
	}

	req := new(GroupInviteRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	group, err := s.groups.GetGroup(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Group not found")
			return
		}
		s.handleError(w, err)
		return
	}

	if group.CreatorID != user.ID {
		s.respondError(w, http.StatusForbidden, "Only the group creator can invite members")
		return
	}

	member := &db.GroupMember{
		GroupID: groupID,
		UserID:  req.UserID,
		Status:  db.MemberStatusInvited,
	}
	if err := s.groups.AddMember(r.Context(), member); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			s.respondError(w, http.StatusConflict, "User is already in the group or invited")
			return
		}
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, member)
}

// HandleAcceptInvite transitions the caller's own invitation to
// joined. Pending join requests cannot be self-accepted.
func (s *Server) HandleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groupID, err := urlParamInt64(r, "groupID")
	if err != nil {
		s.handleError(w, err)
		return
	}

	member, err := s.groups.GetMember(r.Context(), groupID, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Invitation not found")
			return
		}
		s.handleError(w, err)
		return
	}

	if member.Status != db.MemberStatusInvited {
		s.respondError(w, http.StatusBadRequest, "Cannot accept this invitation")
		return
	}

	err = s.groups.UpdateMemberStatus(r.Context(), groupID, user.ID, db.MemberStatusInvited, db.MemberStatusJoined)
	if err != nil {
		s.handleError(w, err)
		return
	}

	member.Status = db.MemberStatusJoined
	s.respondJSON(w, http.StatusOK, member)
}

func (s *Server) HandleGroupInvitations(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groups, err := s.groups.GetGroupsByMemberStatus(r.Context(), user.ID, db.MemberStatusInvited)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, groups)
}

// HandleRequestJoin files a pending join request for the caller. The
// group creator resolves it; an invite this is not.
func (s *Server) HandleRequestJoin(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groupID, err := urlParamInt64(r, "groupID")
	if err != nil {
		s.handleError(w, err)
		return
	}

	if _, err := s.groups.GetGroup(r.Context(), groupID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Group not found")
			return
		}
		s.handleError(w, err)
		return
	}

	member := &db.GroupMember{
		GroupID: groupID,
		UserID:  user.ID,
		Status:  db.MemberStatusPending,
	}
	if err := s.groups.AddMember(r.Context(), member); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			s.respondError(w, http.StatusConflict, "You are already in the group or invited")
			return
		}
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Join request sent"})
}

func (s *Server) HandleJoinRequests(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	requests, err := s.groups.GetJoinRequestsForCreator(r.Context(), user.ID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, requests)
}

// HandleAcceptJoinRequest lets the group creator approve a pending
// request, transitioning it to joined.
func (s *Server) HandleAcceptJoinRequest(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groupID, userID, err := s.authorizeRequestResolution(r)
	if err != nil {
		s.handleError(w, err)
		return
	}

	err = s.groups.UpdateMemberStatus(r.Context(), groupID, userID, db.MemberStatusPending, db.MemberStatusJoined)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Join request not found")
			return
		}
		s.handleError(w, err)
		return
	}

	s.log.Info("Join request accepted", "group_id", groupID, "user_id", userID, "by", user.Username)

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Join request accepted"})
}

// HandleRejectJoinRequest lets the group creator drop a pending
// request. The requester may ask again later.
func (s *Server) HandleRejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groupID, userID, err := s.authorizeRequestResolution(r)
	if err != nil {
		s.handleError(w, err)
		return
	}

	err = s.groups.DeleteMember(r.Context(), groupID, userID, db.MemberStatusPending)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Join request not found")
			return
		}
		s.handleError(w, err)
		return
	}

	s.log.Info("Join request rejected", "group_id", groupID, "user_id", userID, "by", user.Username)

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Join request rejected"})
}

// authorizeRequestResolution parses the group/user params and checks
// the caller owns the group.
func (s *Server) authorizeRequestResolution(r *http.Request) (int64, int64, error) {
	user := currentUser(r)

	groupID, err := urlParamInt64(r, "groupID")
	if err != nil {
		return 0, 0, err
	}

	userID, err := urlParamInt64(r, "userID")
	if err != nil {
		return 0, 0, err
	}

	group, err := s.groups.GetGroup(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, 0, NewNotFoundError("Group not found")
		}
		return 0, 0, err
	}

	if group.CreatorID != user.ID {
		return 0, 0, NewForbiddenError("Only the group creator can resolve join requests")
	}

	return groupID, userID, nil
}

func (s *Server) HandleGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, err := urlParamInt64(r, "groupID")
	if err != nil {
		s.handleError(w, err)
		return
	}

	members, err := s.groups.GetGroupMembers(r.Context(), groupID)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, members)
}

// HandleDeleteGroup removes the group; memberships cascade away.
func (s *Server) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	groupID, err := urlParamInt64(r, "groupID")
	if err != nil {
		s.handleError(w, err)
		return
	}

	group, err := s.groups.GetGroup(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "Group not found")
			return
		}
		s.handleError(w, err)
		return
	}

	if group.CreatorID != user.ID {
		s.respondError(w, http.StatusForbidden, "Only the group creator can delete the group")
		return
	}

	if err := s.groups.DeleteGroup(r.Context(), groupID); err != nil {
		s.handleError(w, err)
		return
	}

	s.log.Info("Group deleted", "group_id", groupID, "by", user.Username)

	s.respondJSON(w, http.StatusOK, MessageResponse{Message: "Group deleted"})
}

package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hivechat/hive/internal/events"
	"github.com/hivechat/hive/internal/gate"
	"github.com/hivechat/hive/internal/models"
	"github.com/hivechat/hive/internal/repositories"
)

// 成员状态机的全部类型化错误，handler 层据此映射状态码
var (
	ErrHiveNotFound        = errors.New("Hive 不存在")
	ErrAlreadyMember       = errors.New("已经是该 Hive 成员")
	ErrRequestPending      = errors.New("入群申请审核中")
	ErrRequestRejected     = errors.New("入群申请已被拒绝")
	ErrRequestNotFound     = errors.New("入群申请不存在")
	ErrRequestProcessed    = errors.New("入群申请已被处理")
	ErrRequestHiveMismatch = errors.New("入群申请不属于该 Hive")
	ErrNotMember           = errors.New("不是该 Hive 成员")
	ErrNotCreator          = errors.New("只有创建者可以执行该操作")
	ErrCreatorCannotLeave  = errors.New("创建者不能退出自己的 Hive")
	ErrCannotRemoveCreator = errors.New("不能移除创建者")
	ErrTokenGateDenied     = errors.New("未持有该 Hive 要求的资产")
)

// MembershipState (user, hive) 二元组的成员状态
type MembershipState string

const (
	StateNone     MembershipState = "none"
	StatePending  MembershipState = "pending"
	StateMember   MembershipState = "member"
	StateRejected MembershipState = "rejected"
	StateCreator  MembershipState = "creator"
)

// MembershipService 成员状态机的唯一入口
// 所有加入/审批/退出/移除路径都经由这里判定转移是否合法，
// 不存在第二份各自为政的入口实现
type MembershipService struct {
	HiveRepo   *repositories.HiveRepository
	MemberRepo *repositories.MembershipRepository
	UserRepo   *repositories.UserRepository
	Oracle     gate.Oracle
	Publisher  events.Publisher
}

func NewMembershipService(
	hiveRepo *repositories.HiveRepository,
	memberRepo *repositories.MembershipRepository,
	userRepo *repositories.UserRepository,
	oracle gate.Oracle,
	publisher events.Publisher,
) *MembershipService {
	return &MembershipService{
		HiveRepo:   hiveRepo,
		MemberRepo: memberRepo,
		UserRepo:   userRepo,
		Oracle:     oracle,
		Publisher:  publisher,
	}
}

// StateOf 解析用户对某 Hive 的当前状态
func (s *MembershipService) StateOf(hive *models.Hive, userID uint) (MembershipState, error) {
	if hive.CreatorID == userID {
		return StateCreator, nil
	}

	isMember, err := s.MemberRepo.IsMember(hive.ID, userID)
	if err != nil {
		return StateNone, err
	}
	if isMember {
		return StateMember, nil
	}

	req, err := s.MemberRepo.GetRequest(hive.ID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StateNone, nil
	}
	if err != nil {
		return StateNone, err
	}
	switch req.Status {
	case models.JoinRequestPending:
		return StatePending, nil
	case models.JoinRequestRejected:
		return StateRejected, nil
	}
	// approved 但成员记录不在：批准是事务性的，这只会在成员随后退出时出现
	return StateNone, nil
}

// JoinResult Join 的结果：要么立即入群，要么进入审批
type JoinResult struct {
	Joined           bool `json:"joined"`
	RequiresApproval bool `json:"requires_approval"`
}

// Join 加入或申请加入
// NONE + 免审批 -> 直接成为成员
// NONE + 需审批 -> 创建 pending 申请
// 其余状态一律拒绝，语义见各错误
func (s *MembershipService) Join(ctx context.Context, userID, hiveID uint) (*JoinResult, error) {
	hive, err := s.HiveRepo.GetByID(hiveID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHiveNotFound
	}
	if err != nil {
		return nil, err
	}

	state, err := s.StateOf(hive, userID)
	if err != nil {
		return nil, err
	}
	switch state {
	case StateCreator, StateMember:
		return nil, ErrAlreadyMember
	case StatePending:
		return nil, ErrRequestPending
	case StateRejected:
		return nil, ErrRequestRejected
	}

	// NFT 门控：查询失败与未持有同样拒绝（fail-closed）
	if hive.ContractAddress != "" {
		user, err := s.UserRepo.GetByID(userID)
		if err != nil {
			return nil, err
		}
		owns, err := s.Oracle.Owns(ctx, user.WalletAddress, hive.ContractAddress)
		if err != nil || !owns {
			return nil, ErrTokenGateDenied
		}
	}

	if hive.RequiresApproval {
		if _, err := s.MemberRepo.CreateRequest(hiveID, userID); err != nil {
			if errors.Is(err, repositories.ErrDuplicateMember) {
				return nil, ErrRequestPending
			}
			return nil, err
		}
		return &JoinResult{Joined: false, RequiresApproval: true}, nil
	}

	if err := s.MemberRepo.AddMember(hiveID, userID); err != nil {
		if errors.Is(err, repositories.ErrDuplicateMember) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	s.publishMemberJoined(hiveID, userID)
	return &JoinResult{Joined: true, RequiresApproval: false}, nil
}

// ResolveByUser 管理端按用户批准/驳回（admin 接口）
func (s *MembershipService) ResolveByUser(callerID, hiveID, targetUserID uint, approve bool) error {
	if _, err := s.loadHiveAsCreator(hiveID, callerID); err != nil {
		return err
	}

	req, err := s.MemberRepo.GetRequest(hiveID, targetUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	return s.resolve(req, approve)
}

// ResolveByRequest 按申请 ID 批准/驳回（join-requests 接口）
func (s *MembershipService) ResolveByRequest(callerID, hiveID, requestID uint, approve bool) error {
	if _, err := s.loadHiveAsCreator(hiveID, callerID); err != nil {
		return err
	}

	req, err := s.MemberRepo.GetRequestByID(requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	if req.HiveID != hiveID {
		return ErrRequestHiveMismatch
	}
	return s.resolve(req, approve)
}

// resolve 执行 pending -> approved/rejected 转移
// 批准路径的状态更新与成员插入在仓储层同一事务内提交
func (s *MembershipService) resolve(req *models.JoinRequest, approve bool) error {
	if req.Status != models.JoinRequestPending {
		return ErrRequestProcessed
	}

	if !approve {
		if err := s.MemberRepo.RejectRequest(req); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestProcessed
			}
			return err
		}
		return nil
	}

	if err := s.MemberRepo.ApproveRequest(req); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateMember):
			// 并发双重批准的败者：成员已在，按冲突处理而非 500
			return ErrAlreadyMember
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrRequestProcessed
		}
		return err
	}

	s.publishMemberJoined(req.HiveID, req.UserID)
	return nil
}

// Leave 成员主动退出
func (s *MembershipService) Leave(userID, hiveID uint) error {
	hive, err := s.HiveRepo.GetByID(hiveID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrHiveNotFound
	}
	if err != nil {
		return err
	}
	if hive.CreatorID == userID {
		return ErrCreatorCannotLeave
	}

	if err := s.MemberRepo.RemoveMember(hiveID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return err
	}

	s.publishMemberLeft(hiveID, userID, events.MemberReasonLeft)
	return nil
}

// Remove 创建者移除成员
func (s *MembershipService) Remove(callerID, hiveID, targetUserID uint) error {
	hive, err := s.loadHiveAsCreator(hiveID, callerID)
	if err != nil {
		return err
	}
	if targetUserID == hive.CreatorID {
		return ErrCannotRemoveCreator
	}

	if err := s.MemberRepo.RemoveMember(hiveID, targetUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		return err
	}

	s.publishMemberLeft(hiveID, targetUserID, events.MemberReasonRemoved)
	return nil
}

// AdminView 管理页数据：待处理申请 + 成员名册
type AdminView struct {
	JoinRequests []models.JoinRequest `json:"join_requests"`
	Members      []models.HiveMember  `json:"members"`
}

func (s *MembershipService) AdminOverview(callerID, hiveID uint) (*AdminView, error) {
	if _, err := s.loadHiveAsCreator(hiveID, callerID); err != nil {
		return nil, err
	}

	reqs, err := s.MemberRepo.ListPendingRequests(hiveID)
	if err != nil {
		return nil, err
	}
	members, err := s.MemberRepo.ListMembers(hiveID)
	if err != nil {
		return nil, err
	}
	return &AdminView{JoinRequests: reqs, Members: members}, nil
}

func (s *MembershipService) loadHiveAsCreator(hiveID, callerID uint) (*models.Hive, error) {
	hive, err := s.HiveRepo.GetByID(hiveID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrHiveNotFound
	}
	if err != nil {
		return nil, err
	}
	if hive.CreatorID != callerID {
		return nil, ErrNotCreator
	}
	return hive, nil
}

// publishMemberJoined 通知集线器把在线客户端拉进房间，无需重连即可收到新 Hive 的事件
func (s *MembershipService) publishMemberJoined(hiveID, userID uint) {
	if s.Publisher == nil {
		return
	}
	_ = s.Publisher.Publish(events.NewMemberJoined(hiveID, events.MemberPayload{
		UserID: userID,
		Reason: events.MemberReasonJoined,
	}))
}

func (s *MembershipService) publishMemberLeft(hiveID, userID uint, reason string) {
	if s.Publisher == nil {
		return
	}
	_ = s.Publisher.Publish(events.NewMemberLeft(hiveID, events.MemberPayload{
		UserID: userID,
		Reason: reason,
	}))
}

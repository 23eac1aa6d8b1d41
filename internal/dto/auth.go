package dto

type RegisterRequest struct {
	Username          string `json:"username"`
	DisplayName       string `json:"displayName"`
	Password          string `json:"password"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

type RegisterResponse struct {
	UserID       string `json:"userId"`
	SessionToken string `json:"sessionToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type LoginRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

type TokenResponse struct {
	SessionToken string `json:"sessionToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type RefreshRequest struct {
	SessionToken      string `json:"sessionToken"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

type PushTokenRequest struct {
	Token string `json:"token"`
}

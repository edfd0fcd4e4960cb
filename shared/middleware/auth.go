package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/models"
	"github.com/pavitra93/go-property-management/shared/utils"
)

// Headers the gateway forwards to the services behind it
const (
	HeaderOrgID    = "X-Org-ID"
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const claimsCacheTTL = time.Hour

// AuthMiddleware handles JWT token validation
type AuthMiddleware struct {
	cognitoClient *cognitoidentityprovider.CognitoIdentityProvider
	userPoolID    string
	db            *gorm.DB
	jwksValidator *utils.JWKSValidator
}

// CognitoClaims represents Cognito JWT claims
type CognitoClaims struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Username   string `json:"cognito:username"`
	TokenUse   string `json:"token_use"`
	CustomOrg  string `json:"custom:org_id"`
	CustomRole string `json:"custom:role"`
}

// NewAuthMiddleware creates a new authentication middleware. Signatures are
// verified against the pool's JWKS unless cfg.VerifySignature is false.
func NewAuthMiddleware(db *gorm.DB, cfg *config.AuthConfig) (*AuthMiddleware, error) {
	am := &AuthMiddleware{
		userPoolID: cfg.UserPoolID,
		db:         db,
	}

	if cfg.UserPoolID != "" {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.Region),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create aws session: %w", err)
		}
		am.cognitoClient = cognitoidentityprovider.New(sess)
	}

	if cfg.VerifySignature {
		if cfg.UserPoolID == "" {
			return nil, errors.New("COGNITO_USER_POOL_ID is required when signature verification is on")
		}
		am.jwksValidator = utils.NewJWKSValidator(utils.CognitoIssuer(cfg.Region, cfg.UserPoolID))
	}

	return am, nil
}

// RequireAuth middleware validates JWT tokens and stores the caller's
// identity on the context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.UnauthorizedResponse(c, "Authorization token required")
			c.Abort()
			return
		}

		claims, err := am.resolveClaims(c.Request.Context(), tokenString)
		if err != nil {
			logrus.WithError(err).Debug("Rejected token")
			utils.UnauthorizedResponse(c, "Invalid token")
			c.Abort()
			return
		}

		setIdentity(c, claims.Sub, claims.Email, claims.CustomOrg, claims.CustomRole)
		c.Next()
	}
}

// TrustGateway reads the identity headers set by the gateway. Services use it
// instead of RequireAuth when they are only reachable through the gateway.
func TrustGateway() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.GetHeader(HeaderOrgID)
		if _, err := uuid.Parse(orgID); err != nil {
			utils.UnauthorizedResponse(c, "Missing or invalid organization")
			c.Abort()
			return
		}

		role := c.GetHeader(HeaderUserRole)
		if role == "" {
			role = string(models.RoleViewer)
		}

		setIdentity(c, c.GetHeader(HeaderUserID), "", orgID, role)
		c.Next()
	}
}

// RequireRole middleware allows only the listed roles
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.UserRole(c.GetString("role"))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Insufficient permissions",
			"role":    role,
		})
		c.Abort()
	}
}

// RequireWrite middleware rejects read-only members
func RequireWrite() gin.HandlerFunc {
	return RequireRole(models.RoleOwner, models.RoleManager)
}

func setIdentity(c *gin.Context, userID, email, orgID, role string) {
	c.Set("user_id", userID)
	c.Set("email", email)
	c.Set("org_id", orgID)
	c.Set("role", role)
}

// getCacheKey generates a cache key for the token
func getCacheKey(tokenString string) string {
	hash := sha256.Sum256([]byte(tokenString))
	return "token:" + hex.EncodeToString(hash[:])
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}

// resolveClaims turns a raw token into claims carrying an org and a role.
// Results are cached by token hash.
func (am *AuthMiddleware) resolveClaims(ctx context.Context, tokenString string) (*CognitoClaims, error) {
	cacheKey := getCacheKey(tokenString)
	var cached CognitoClaims
	if err := utils.CacheGetJSON(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	raw, err := am.parseToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	claims := &CognitoClaims{
		Sub:        getClaimString(raw, "sub"),
		Email:      getClaimString(raw, "email"),
		Username:   getClaimString(raw, "cognito:username"),
		TokenUse:   getClaimString(raw, "token_use"),
		CustomOrg:  getClaimString(raw, "custom:org_id"),
		CustomRole: getClaimString(raw, "custom:role"),
	}
	if claims.Sub == "" {
		return nil, errors.New("token has no subject")
	}
	if claims.TokenUse != "" && claims.TokenUse != "access" && claims.TokenUse != "id" {
		return nil, fmt.Errorf("invalid token use: %s", claims.TokenUse)
	}

	// Access tokens carry no custom attributes
	if claims.CustomOrg == "" || claims.CustomRole == "" {
		if err := am.fillFromDirectory(ctx, claims); err != nil {
			return nil, err
		}
	}

	if _, err := uuid.Parse(claims.CustomOrg); err != nil {
		return nil, fmt.Errorf("invalid org in token: %w", err)
	}

	if err := utils.CacheSetJSON(ctx, cacheKey, claims, claimsCacheTTL); err != nil {
		logrus.WithError(err).Warn("Failed to cache token claims")
	}

	return claims, nil
}

func (am *AuthMiddleware) parseToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	if am.jwksValidator != nil {
		return am.jwksValidator.ValidateToken(ctx, tokenString)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// fillFromDirectory completes missing org and role from the users table,
// then from Cognito user attributes
func (am *AuthMiddleware) fillFromDirectory(ctx context.Context, claims *CognitoClaims) error {
	var user models.User
	err := am.db.WithContext(ctx).Where("cognito_id = ?", claims.Sub).First(&user).Error
	if err == nil {
		if claims.CustomOrg == "" {
			claims.CustomOrg = user.OrgID.String()
		}
		if claims.CustomRole == "" {
			claims.CustomRole = string(user.Role)
		}
		if claims.Email == "" {
			claims.Email = user.Email
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if (claims.CustomOrg == "" || claims.CustomRole == "") && am.cognitoClient != nil {
		out, err := am.cognitoClient.AdminGetUserWithContext(ctx, &cognitoidentityprovider.AdminGetUserInput{
			UserPoolId: aws.String(am.userPoolID),
			Username:   aws.String(claims.Sub),
		})
		if err != nil {
			return fmt.Errorf("failed to get user from Cognito: %w", err)
		}
		for _, attr := range out.UserAttributes {
			switch aws.StringValue(attr.Name) {
			case "custom:org_id":
				if claims.CustomOrg == "" {
					claims.CustomOrg = aws.StringValue(attr.Value)
				}
			case "custom:role":
				if claims.CustomRole == "" {
					claims.CustomRole = aws.StringValue(attr.Value)
				}
			case "email":
				if claims.Email == "" {
					claims.Email = aws.StringValue(attr.Value)
				}
			}
		}
	}

	if claims.CustomOrg == "" {
		return errors.New("user has no organization")
	}
	if claims.CustomRole == "" {
		claims.CustomRole = string(models.RoleViewer)
	}
	return nil
}

// getClaimString safely extracts a string claim from JWT claims
func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetUserInfoFromContext extracts full user information from the Gin context as UserInfo struct
func GetUserInfoFromContext(c *gin.Context) (*models.UserInfo, error) {
	orgID, err := GetOrgIDFromContext(c)
	if err != nil {
		return nil, err
	}

	role := models.UserRole(c.GetString("role"))
	return &models.UserInfo{
		CognitoID: c.GetString("user_id"),
		Email:     c.GetString("email"),
		Role:      role,
		OrgID:     orgID,
		CanWrite:  role.CanWrite(),
	}, nil
}

// GetOrgIDFromContext extracts the organization ID from the Gin context
func GetOrgIDFromContext(c *gin.Context) (uuid.UUID, error) {
	orgIDStr := c.GetString("org_id")
	if orgIDStr == "" {
		return uuid.Nil, errors.New("org_id not found in context")
	}
	return uuid.Parse(orgIDStr)
}

// OrgID returns the caller's organization, answering 401 when it is missing
func OrgID(c *gin.Context) (uuid.UUID, bool) {
	orgID, err := GetOrgIDFromContext(c)
	if err != nil {
		utils.UnauthorizedResponse(c, "Organization not found in context")
		return uuid.Nil, false
	}
	return orgID, true
}

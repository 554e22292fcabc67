package wire

// Op codes prefixing every message body. The jetton values are the TEP-74
// standard ones; the rest are owned by this protocol and are stable.
const (
	OpTextComment uint32 = 0x00000000
	OpBounced     uint32 = 0xffffffff

	// TEP-74 jetton wallet protocol.
	OpJettonTransfer             uint32 = 0x0f8a7ea5
	OpJettonInternalTransfer     uint32 = 0x178d4519
	OpJettonTransferNotification uint32 = 0x7362d09c
	OpJettonExcesses             uint32 = 0xd53276db
	OpJettonMint                 uint32 = 0x00000015

	// Forward payloads tagging the purpose of a jetton transfer.
	OpPayloadAdvertiserReplenish uint32 = 0x5d1b6c2e
	OpPayloadPayAffiliate        uint32 = 0x2c91a3f7
	OpPayloadAdminPayAffiliate   uint32 = 0x2c91a3f8
	OpPayloadWithdrawToPayout    uint32 = 0x3e6f0b42
	OpPayloadSeize               uint32 = 0x4f1b9c03
	OpPayloadPlatformFee         uint32 = 0x61d0a8e5

	// Advertiser / admin → marketplace.
	OpAdvertiserDeployNewCampaign           uint32 = 0x8a3c2f01
	OpAdminStopCampaign                     uint32 = 0x8a3c2f10
	OpAdminResumeCampaign                   uint32 = 0x8a3c2f11
	OpAdminModifyCampaignFeePercentage      uint32 = 0x8a3c2f12
	OpAdminSeizeCampaignBalance             uint32 = 0x8a3c2f13
	OpAdminWithdrawUSDTToPayout             uint32 = 0x8a3c2f14
	OpAdminPayAffiliateUSDTBounced          uint32 = 0x8a3c2f15
	OpAdminJettonNotificationMessageFailure uint32 = 0x8a3c2f16
	OpAdminCollectPlatformFees              uint32 = 0x8a3c2f17
	OpAdminWithdrawFunds                    uint32 = 0x8a3c2f20
	OpAdminUpdateDefaultFees                uint32 = 0x8a3c2f21
	OpAdminSetBotAddress                    uint32 = 0x8a3c2f22
	OpAdminSetUSDTConfig                    uint32 = 0x8a3c2f23

	// Marketplace → campaign.
	OpParentToChildDeployCampaign            uint32 = 0x9b4d3e01
	OpParentToChildStopCampaign              uint32 = 0x9b4d3e02
	OpParentToChildResumeCampaign            uint32 = 0x9b4d3e03
	OpParentToChildUpdateFeePercentages      uint32 = 0x9b4d3e04
	OpParentToChildSeizeCampaignBalance      uint32 = 0x9b4d3e05
	OpParentToChildWithdrawUSDTToPayout      uint32 = 0x9b4d3e06
	OpParentToChildPayAffiliateUSDTBounced   uint32 = 0x9b4d3e07
	OpParentToChildJettonNotificationFailure uint32 = 0x9b4d3e08
	OpParentToChildCollectPlatformFees       uint32 = 0x9b4d3e09

	// Campaign → marketplace echoes.
	OpChildToParentCampaignCreated           uint32 = 0xac5e4f01
	OpChildToParentCampaignDetailsSet        uint32 = 0xac5e4f02
	OpChildToParentAffiliateCreated          uint32 = 0xac5e4f03
	OpChildToParentAffiliateWithdrawEarnings uint32 = 0xac5e4f04
	OpChildToParentCampaignReplenished       uint32 = 0xac5e4f05
	OpChildToParentPlatformFees              uint32 = 0xac5e4f06
	OpChildToParentCampaignSeized            uint32 = 0xac5e4f07

	// Advertiser → campaign.
	OpAdvertiserSetCampaignDetails  uint32 = 0xbd6f5001
	OpAdvertiserReplenish           uint32 = 0xbd6f5002
	OpAdvertiserWithdrawFunds       uint32 = 0xbd6f5003
	OpAdvertiserAddNewAffiliate     uint32 = 0xbd6f5004
	OpAdvertiserApproveAffiliate    uint32 = 0xbd6f5005
	OpAdvertiserRemoveAffiliate     uint32 = 0xbd6f5006
	OpAdvertiserUserAction          uint32 = 0xbd6f5007
	OpAdvertiserApproveEarnings     uint32 = 0xbd6f5008
	OpAdvertiserSignOffWithdrawals  uint32 = 0xbd6f5009
	OpAdvertiserUpdatePayoutAddress uint32 = 0xbd6f500a

	// Affiliate / bot → campaign, campaign → affiliate.
	OpAffiliateCreateNewAffiliate uint32 = 0xce706101
	OpAffiliateWithdrawEarnings   uint32 = 0xce706102
	OpBotCreateNewAffiliate       uint32 = 0xce706201
	OpBotUserAction               uint32 = 0xce706202
	OpCampaignPayout              uint32 = 0xce706301
)

// BotOpCodeLimit separates bot-verified user action codes (below) from
// advertiser-verified ones (at or above).
const BotOpCodeLimit uint32 = 20000
